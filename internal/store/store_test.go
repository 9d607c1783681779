// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tessera-auth/tessera/internal/model"
	"github.com/tessera-auth/tessera/internal/vault"
)

// fakeVault is an in-memory vault.Vault for store tests. failPut simulates a
// storage failure on the next write.
type fakeVault struct {
	data    map[string][]byte
	audit   []vault.AuditLogEntry
	failPut error
	puts    int
}

func newFakeVault() *fakeVault {
	return &fakeVault{data: make(map[string][]byte)}
}

func (f *fakeVault) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, vault.ErrNotFound
	}
	return v, nil
}

func (f *fakeVault) Put(_ context.Context, key string, value []byte) error {
	if f.failPut != nil {
		return f.failPut
	}
	f.puts++
	f.data[key] = value
	return nil
}

func (f *fakeVault) Delete(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeVault) LogAction(_ context.Context, action, details string) error {
	f.audit = append(f.audit, vault.AuditLogEntry{
		ID:        len(f.audit) + 1,
		Timestamp: time.Now(),
		Action:    action,
		Details:   details,
	})
	return nil
}

func (f *fakeVault) AuditLog(_ context.Context) ([]vault.AuditLogEntry, error) {
	out := make([]vault.AuditLogEntry, len(f.audit))
	copy(out, f.audit)
	return out, nil
}

func (f *fakeVault) Close() error { return nil }

func acct(id string) model.Account {
	return model.Account{
		ID:          id,
		Issuer:      "Example",
		AccountName: id + "@example.com",
		Secret:      "JBSWY3DPEHPK3PXP",
		Digits:      6,
		Period:      30,
		Algorithm:   "SHA1",
	}
}

func TestLoad_MissingKeyYieldsEmpty(t *testing.T) {
	s := New(newFakeVault())
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d accounts", s.Len())
	}
}

func TestLoad_CorruptBlobResetsEmpty(t *testing.T) {
	fv := newFakeVault()
	fv.data[vault.AccountsKey] = []byte("{{{not json")

	s := New(fv)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load must not fail on corrupt data: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected reset-to-empty, got %d accounts", s.Len())
	}
}

func TestAddPersistLoad_RoundTrip(t *testing.T) {
	fv := newFakeVault()
	ctx := context.Background()

	s := New(fv)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, id := range []string{"z", "a", "m"} {
		if err := s.Add(ctx, acct(id)); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}

	// A fresh store over the same vault sees the same ordered collection.
	s2 := New(fv)
	if err := s2.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := s2.Accounts()
	if len(got) != 3 {
		t.Fatalf("got %d accounts, want 3", len(got))
	}
	// Insertion order, no sorting.
	for i, id := range []string{"z", "a", "m"} {
		if got[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestAdd_PersistFailureLeavesStoreUnchanged(t *testing.T) {
	fv := newFakeVault()
	ctx := context.Background()
	s := New(fv)

	if err := s.Add(ctx, acct("a")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	fv.failPut = errors.New("disk full")
	if err := s.Add(ctx, acct("b")); err == nil {
		t.Fatalf("expected persist failure to surface")
	}
	if s.Len() != 1 {
		t.Fatalf("failed Add mutated the store: %d accounts", s.Len())
	}
	if _, ok := s.Get("b"); ok {
		t.Fatalf("failed Add left the account in memory")
	}
}

func TestRemove(t *testing.T) {
	fv := newFakeVault()
	ctx := context.Background()
	s := New(fv)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Add(ctx, acct(id)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	putsBefore := fv.puts

	if err := s.Remove(ctx, "b"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	got := s.Accounts()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected collection after remove: %v", got)
	}
	if fv.puts != putsBefore+1 {
		t.Fatalf("remove did not persist")
	}

	// Removing a missing id is a no-op, not an error, and does not persist.
	if err := s.Remove(ctx, "nope"); err != nil {
		t.Fatalf("Remove of missing id: %v", err)
	}
	if fv.puts != putsBefore+1 {
		t.Fatalf("no-op remove persisted")
	}
}

func TestGet(t *testing.T) {
	s := New(newFakeVault())
	ctx := context.Background()
	if err := s.Add(ctx, acct("a")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	a, ok := s.Get("a")
	if !ok || a.ID != "a" {
		t.Fatalf("Get(a) = %v, %v", a, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Fatalf("Get of missing id reported found")
	}
}

// Restore is additive and does not deduplicate: restoring the same backup
// twice doubles the collection. It also persists exactly once per call.
func TestRestore_AdditiveNoDedup(t *testing.T) {
	fv := newFakeVault()
	ctx := context.Background()
	s := New(fv)

	if err := s.Add(ctx, acct("existing")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	backup := []model.Account{acct("r1"), acct("r2")}
	putsBefore := fv.puts
	if err := s.Restore(ctx, backup); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if fv.puts != putsBefore+1 {
		t.Fatalf("restore persisted %d times, want 1", fv.puts-putsBefore)
	}
	if s.Len() != 3 {
		t.Fatalf("got %d accounts, want 3", s.Len())
	}

	if err := s.Restore(ctx, backup); err != nil {
		t.Fatalf("second Restore: %v", err)
	}
	if s.Len() != 5 {
		t.Fatalf("restore-twice should double the restored entries: got %d", s.Len())
	}

	// Restoring nothing is a no-op.
	if err := s.Restore(ctx, nil); err != nil {
		t.Fatalf("empty Restore: %v", err)
	}
	if s.Len() != 5 {
		t.Fatalf("empty restore changed the collection")
	}
}

func TestAccounts_SnapshotIsImmutable(t *testing.T) {
	s := New(newFakeVault())
	ctx := context.Background()
	if err := s.Add(ctx, acct("a")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	snap := s.Accounts()
	snap[0].Issuer = "mutated"

	again := s.Accounts()
	if again[0].Issuer != "Example" {
		t.Fatalf("snapshot mutation leaked into the store")
	}
}

func TestSubscribe_NotifiesOnMutation(t *testing.T) {
	s := New(newFakeVault())
	ctx := context.Background()

	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	if err := s.Add(ctx, acct("a")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	select {
	case snap := <-ch:
		if len(snap) != 1 || snap[0].ID != "a" {
			t.Fatalf("unexpected notification: %v", snap)
		}
	case <-time.After(time.Second):
		t.Fatalf("no notification after Add")
	}

	if err := s.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	select {
	case snap := <-ch:
		if len(snap) != 0 {
			t.Fatalf("unexpected notification: %v", snap)
		}
	case <-time.After(time.Second):
		t.Fatalf("no notification after Remove")
	}
}

// A slow observer never blocks mutations; it sees the latest state, not a
// backlog.
func TestSubscribe_SlowObserverSeesLatest(t *testing.T) {
	s := New(newFakeVault())
	ctx := context.Background()

	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Add(ctx, acct(id)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	var last []model.Account
	for {
		select {
		case snap := <-ch:
			last = snap
			continue
		default:
		}
		break
	}
	if len(last) != 3 {
		t.Fatalf("latest notification has %d accounts, want 3", len(last))
	}
}

func TestMutations_WriteAuditTrail(t *testing.T) {
	fv := newFakeVault()
	ctx := context.Background()
	s := New(fv)

	if err := s.Add(ctx, acct("a")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Restore(ctx, []model.Account{acct("r")}); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	entries, err := fv.AuditLog(ctx)
	if err != nil {
		t.Fatalf("AuditLog: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d audit entries, want 3", len(entries))
	}
	wantActions := []string{"ADD_ACCOUNT", "REMOVE_ACCOUNT", "RESTORE"}
	for i, want := range wantActions {
		if entries[i].Action != want {
			t.Errorf("entry %d action = %q, want %q", i, entries[i].Action, want)
		}
	}
}

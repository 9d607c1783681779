// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package store holds the canonical in-memory account collection. It is an
// explicit state container owned by the running session: readers get
// immutable snapshots, mutations are serialized through a single mutex, and
// every successful mutation synchronously re-persists the full ordered
// collection to the vault before returning.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tessera-auth/tessera/internal/logging"
	"github.com/tessera-auth/tessera/internal/model"
	"github.com/tessera-auth/tessera/internal/vault"
)

// Store is the ordered account collection. Insertion order is the persisted
// and displayed order; there is no implicit sorting.
type Store struct {
	mu       sync.Mutex
	accounts []model.Account

	vault vault.Vault

	subMu sync.Mutex
	subs  map[chan []model.Account]struct{}
}

// New creates a Store backed by the given vault. Call Load before use.
func New(v vault.Vault) *Store {
	return &Store{
		vault: v,
		subs:  make(map[chan []model.Account]struct{}),
	}
}

// Load reads the persisted collection from the vault. A missing key yields
// an empty collection; a corrupt blob is logged and reset to empty rather
// than crashing, since secrets are user data and a bad blob must not block
// all future usage.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.vault.Get(ctx, vault.AccountsKey)
	if err != nil {
		if errors.Is(err, vault.ErrNotFound) {
			s.mu.Lock()
			s.accounts = nil
			s.mu.Unlock()
			return nil
		}
		return err
	}
	accounts, err := model.DecodeAccounts(data)
	if err != nil {
		logging.Errorf("store: corrupt persisted accounts, resetting to empty: %v", err)
		s.mu.Lock()
		s.accounts = nil
		s.mu.Unlock()
		return nil
	}
	s.mu.Lock()
	s.accounts = accounts
	s.mu.Unlock()
	return nil
}

// Accounts returns an immutable snapshot of the current collection.
func (s *Store) Accounts() []model.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.accounts)
}

// Len returns the number of stored accounts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// Get returns the account with the given id.
func (s *Store) Get(id string) (model.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ID == id {
			return a, true
		}
	}
	return model.Account{}, false
}

// Add appends the account and persists the new collection. Duplicates of
// secret, issuer or account name are permitted; only the id must be unique.
// Once Add returns nil the new state is durable.
func (s *Store) Add(ctx context.Context, a model.Account) error {
	s.mu.Lock()
	next := append(snapshot(s.accounts), a)
	if err := s.persistLocked(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.accounts = next
	snap := snapshot(next)
	s.mu.Unlock()

	s.audit(ctx, "ADD_ACCOUNT", a.String())
	s.notify(snap)
	return nil
}

// Remove deletes the account with the given id and persists the new
// collection. Removing a non-existent id is a no-op, not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	for i, a := range s.accounts {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	removed := s.accounts[idx]
	next := make([]model.Account, 0, len(s.accounts)-1)
	next = append(next, s.accounts[:idx]...)
	next = append(next, s.accounts[idx+1:]...)
	if err := s.persistLocked(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.accounts = next
	snap := snapshot(next)
	s.mu.Unlock()

	s.audit(ctx, "REMOVE_ACCOUNT", removed.String())
	s.notify(snap)
	return nil
}

// Restore appends a decoded backup to the current collection in a single
// persist. Restore is additive, not destructive, and does not deduplicate;
// restoring the same backup twice doubles the collection.
func (s *Store) Restore(ctx context.Context, accounts []model.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	s.mu.Lock()
	next := append(snapshot(s.accounts), accounts...)
	if err := s.persistLocked(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.accounts = next
	snap := snapshot(next)
	s.mu.Unlock()

	s.audit(ctx, "RESTORE", fmt.Sprintf("restored %d accounts", len(accounts)))
	s.notify(snap)
	return nil
}

// Persist re-serializes the current collection to the vault. Mutations do
// this implicitly; Persist exists for callers that need to force a write.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx, s.accounts)
}

// persistLocked writes the full ordered sequence under the fixed vault key.
// Replace semantics: the previous value is gone once this returns.
func (s *Store) persistLocked(ctx context.Context, accounts []model.Account) error {
	data, err := model.EncodeAccounts(accounts)
	if err != nil {
		return err
	}
	return s.vault.Put(ctx, vault.AccountsKey, data)
}

// Subscribe registers an observer. Every successful mutation delivers the
// full new collection on the returned channel; there are no granular
// per-account events. Slow observers drop notifications instead of blocking
// mutations.
func (s *Store) Subscribe() chan []model.Account {
	ch := make(chan []model.Account, 1)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	return ch
}

// Unsubscribe removes an observer and closes its channel.
func (s *Store) Unsubscribe(ch chan []model.Account) {
	s.subMu.Lock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
	s.subMu.Unlock()
}

func (s *Store) notify(snap []model.Account) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Replace a stale pending notification with the current one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (s *Store) audit(ctx context.Context, action, details string) {
	if err := s.vault.LogAction(ctx, action, details); err != nil {
		logging.Warnf("store: audit log write failed: %v", err)
	}
}

func snapshot(accounts []model.Account) []model.Account {
	out := make([]model.Account, len(accounts))
	copy(out, accounts)
	return out
}

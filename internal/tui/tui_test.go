// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tessera-auth/tessera/internal/model"
	"github.com/tessera-auth/tessera/internal/otp"
	"github.com/tessera-auth/tessera/internal/scheduler"
	"github.com/tessera-auth/tessera/internal/store"
	"github.com/tessera-auth/tessera/internal/vault"
)

// memVault is a minimal in-memory vault for wiring a real store into model
// tests.
type memVault struct {
	data map[string][]byte
}

func newMemVault() *memVault { return &memVault{data: make(map[string][]byte)} }

func (v *memVault) Get(_ context.Context, key string) ([]byte, error) {
	b, ok := v.data[key]
	if !ok {
		return nil, vault.ErrNotFound
	}
	return b, nil
}

func (v *memVault) Put(_ context.Context, key string, value []byte) error {
	v.data[key] = value
	return nil
}

func (v *memVault) Delete(_ context.Context, key string) error {
	delete(v.data, key)
	return nil
}

func (v *memVault) LogAction(context.Context, string, string) error { return nil }

func (v *memVault) AuditLog(context.Context) ([]vault.AuditLogEntry, error) { return nil, nil }

func (v *memVault) Close() error { return nil }

func testAccount(id string) model.Account {
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

func testModel(t *testing.T, accounts ...model.Account) mainModel {
	t.Helper()
	st := store.New(newMemVault())
	for _, a := range accounts {
		if err := st.Add(context.Background(), a); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	now := time.Unix(1756600000, 0)
	return mainModel{
		store:    st,
		accounts: st.Accounts(),
		tick:     scheduler.Tick{Now: now, Remaining: map[int]int{30: scheduler.Remaining(30, now)}},
	}
}

func keyMsg(s string) tea.KeyMsg {
	if len(s) == 1 {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestListNavigation(t *testing.T) {
	m := testModel(t, testAccount("a"), testAccount("b"), testAccount("c"))

	// Down moves the cursor, clamped at the end of the list.
	for i := 0; i < 5; i++ {
		next, _ := m.Update(keyMsg("down"))
		m = next.(mainModel)
	}
	if m.cursor != 2 {
		t.Fatalf("cursor = %d, want 2", m.cursor)
	}

	// Up moves back, clamped at zero.
	for i := 0; i < 5; i++ {
		next, _ := m.Update(keyMsg("up"))
		m = next.(mainModel)
	}
	if m.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", m.cursor)
	}
}

func TestQuitKeys(t *testing.T) {
	for _, key := range []string{"q", "esc"} {
		m := testModel(t)
		_, cmd := m.Update(keyMsg(key))
		if cmd == nil {
			t.Fatalf("key %q did not quit", key)
		}
		if msg := cmd(); msg == nil {
			t.Fatalf("key %q produced no quit message", key)
		}
	}
}

func TestStoreChangeUpdatesListAndClampsCursor(t *testing.T) {
	m := testModel(t, testAccount("a"), testAccount("b"), testAccount("c"))
	m.cursor = 2

	next, _ := m.Update(storeChangedMsg([]model.Account{testAccount("a")}))
	m = next.(mainModel)

	if len(m.accounts) != 1 {
		t.Fatalf("accounts not updated: %d", len(m.accounts))
	}
	if m.cursor != 0 {
		t.Fatalf("cursor not clamped: %d", m.cursor)
	}
}

func TestTickUpdatesCountdown(t *testing.T) {
	m := testModel(t, testAccount("a"))
	at := time.Unix(1756600010, 0)
	tick := scheduler.Tick{Now: at, Remaining: map[int]int{30: scheduler.Remaining(30, at)}}

	next, _ := m.Update(tickMsg(tick))
	m = next.(mainModel)

	if !m.tick.Now.Equal(at) {
		t.Fatalf("tick not applied")
	}
}

func TestDeleteFlow(t *testing.T) {
	m := testModel(t, testAccount("a"), testAccount("b"))

	// 'd' enters the confirmation view.
	next, _ := m.Update(keyMsg("d"))
	m = next.(mainModel)
	if m.state != confirmDeleteView {
		t.Fatalf("state = %v, want confirmDeleteView", m.state)
	}

	// 'n' cancels without touching the store.
	next, _ = m.Update(keyMsg("n"))
	m = next.(mainModel)
	if m.state != listView {
		t.Fatalf("cancel did not return to the list")
	}
	if m.store.Len() != 2 {
		t.Fatalf("cancel removed an account")
	}

	// 'd' then 'y' removes the selected account.
	next, _ = m.Update(keyMsg("d"))
	m = next.(mainModel)
	next, _ = m.Update(keyMsg("y"))
	m = next.(mainModel)
	if m.state != listView {
		t.Fatalf("confirm did not return to the list")
	}
	if m.store.Len() != 1 {
		t.Fatalf("account not removed: %d left", m.store.Len())
	}
	if _, ok := m.store.Get("a"); ok {
		t.Fatalf("selected account still present")
	}
}

func TestDeleteOnEmptyListIsIgnored(t *testing.T) {
	m := testModel(t)
	next, _ := m.Update(keyMsg("d"))
	m = next.(mainModel)
	if m.state != listView {
		t.Fatalf("empty list entered delete confirmation")
	}
}

func TestFormFlow_AddAccount(t *testing.T) {
	m := testModel(t)

	// 'a' opens the form.
	next, _ := m.Update(keyMsg("a"))
	m = next.(mainModel)
	if m.state != formView {
		t.Fatalf("state = %v, want formView", m.state)
	}

	// Fill issuer, account name and secret, tabbing between fields.
	typeInto := func(s string) {
		for _, r := range s {
			next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
			m = next.(mainModel)
		}
	}
	typeInto("Example")
	next, _ = m.Update(keyMsg("tab"))
	m = next.(mainModel)
	typeInto("alice")
	next, _ = m.Update(keyMsg("tab"))
	m = next.(mainModel)
	typeInto("jbsw y3dp ehpk 3pxp")

	next, _ = m.Update(keyMsg("enter"))
	m = next.(mainModel)
	if m.state != listView {
		t.Fatalf("enter did not save: state=%v err=%v", m.state, m.form.err)
	}
	if m.store.Len() != 1 {
		t.Fatalf("account not stored")
	}
	got := m.store.Accounts()[0]
	if got.Issuer != "Example" || got.AccountName != "alice" {
		t.Fatalf("unexpected account: %+v", got)
	}
	if got.Secret != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("secret not normalized: %q", got.Secret)
	}
	if got.Digits != model.DefaultDigits || got.Period != model.DefaultPeriod || got.Algorithm != model.DefaultAlgorithm {
		t.Fatalf("defaults not applied: %+v", got)
	}
}

func TestFormFlow_InvalidSecretStaysInForm(t *testing.T) {
	m := testModel(t)
	next, _ := m.Update(keyMsg("a"))
	m = next.(mainModel)

	// Jump to the secret field and type garbage.
	next, _ = m.Update(keyMsg("tab"))
	m = next.(mainModel)
	next, _ = m.Update(keyMsg("tab"))
	m = next.(mainModel)
	for _, r := range "not!base32" {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(mainModel)
	}

	next, _ = m.Update(keyMsg("enter"))
	m = next.(mainModel)
	if m.state != formView {
		t.Fatalf("invalid secret left the form")
	}
	if m.form.err == nil {
		t.Fatalf("no error surfaced for invalid secret")
	}
	if m.store.Len() != 0 {
		t.Fatalf("invalid account stored")
	}
}

func TestFormFlow_EscCancels(t *testing.T) {
	m := testModel(t)
	next, _ := m.Update(keyMsg("a"))
	m = next.(mainModel)
	next, _ = m.Update(keyMsg("esc"))
	m = next.(mainModel)
	if m.state != listView {
		t.Fatalf("esc did not cancel the form")
	}
}

func TestRenderAccountRow(t *testing.T) {
	a := testAccount("a")
	m := testModel(t, a)

	row := m.renderAccountRow(a)
	code, err := otp.GenerateTime(a, m.tick.Now)
	if err != nil {
		t.Fatalf("GenerateTime: %v", err)
	}
	if !strings.Contains(row, code) {
		t.Fatalf("row does not contain the code %s: %q", code, row)
	}
	if !strings.Contains(row, "Example (a@example.com)") {
		t.Fatalf("row does not contain the account name: %q", row)
	}
}

// A bad stored secret renders an error marker, never a placeholder code.
func TestRenderAccountRow_BadSecret(t *testing.T) {
	bad := testAccount("bad")
	bad.Secret = "!!!!"
	m := testModel(t)

	row := m.renderAccountRow(bad)
	if strings.Contains(row, "000000") {
		t.Fatalf("placeholder code rendered for invalid secret: %q", row)
	}
}

func TestListView_EmptyState(t *testing.T) {
	m := testModel(t)
	out := m.listView()
	if out == "" {
		t.Fatalf("empty list rendered nothing")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 32); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	long := strings.Repeat("x", 40)
	got := truncate(long, 32)
	if len([]rune(got)) != 32 {
		t.Errorf("truncated length = %d, want 32", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated string missing ellipsis: %q", got)
	}
}

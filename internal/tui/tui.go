// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

// This file, tui.go, is the main entry point for the TUI, containing the
// top-level model that routes between the account list and the add form.
package tui

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tessera-auth/tessera/internal/i18n"
	"github.com/tessera-auth/tessera/internal/model"
	"github.com/tessera-auth/tessera/internal/otp"
	"github.com/tessera-auth/tessera/internal/scheduler"
	"github.com/tessera-auth/tessera/internal/store"
)

// viewState represents which part of the UI is currently active.
type viewState int

const (
	listView viewState = iota
	formView
	confirmDeleteView
)

// tickMsg carries a scheduler tick into the bubbletea event loop.
type tickMsg scheduler.Tick

// storeChangedMsg carries a whole-collection-changed notification.
type storeChangedMsg []model.Account

// mainModel is the top-level model for the TUI.
type mainModel struct {
	state viewState

	store *store.Store
	sched *scheduler.Scheduler

	ticks   chan scheduler.Tick
	changes chan []model.Account

	accounts []model.Account
	tick     scheduler.Tick
	cursor   int

	form accountFormModel

	status string
	err    error

	width, height int
}

// Run launches the TUI. It owns the scheduler lifecycle: ticking starts when
// the view appears and stops when the user quits, so no free-running timer
// outlives its consumer.
func Run(st *store.Store, sched *scheduler.Scheduler) error {
	ticks := sched.Subscribe()
	changes := st.Subscribe()
	sched.Start()
	defer func() {
		sched.Stop()
		sched.Unsubscribe(ticks)
		st.Unsubscribe(changes)
	}()

	m := mainModel{
		store:    st,
		sched:    sched,
		ticks:    ticks,
		changes:  changes,
		accounts: st.Accounts(),
		tick:     sched.Snapshot(),
	}
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func (m mainModel) Init() tea.Cmd {
	return tea.Batch(waitForTick(m.ticks), waitForChange(m.changes))
}

// waitForTick converts the scheduler channel into bubbletea messages.
func waitForTick(ch chan scheduler.Tick) tea.Cmd {
	return func() tea.Msg {
		t, ok := <-ch
		if !ok {
			return nil
		}
		return tickMsg(t)
	}
}

func waitForChange(ch chan []model.Account) tea.Cmd {
	return func() tea.Msg {
		accounts, ok := <-ch
		if !ok {
			return nil
		}
		return storeChangedMsg(accounts)
	}
}

func (m mainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		m.tick = scheduler.Tick(msg)
		return m, waitForTick(m.ticks)

	case storeChangedMsg:
		m.accounts = []model.Account(msg)
		if m.cursor >= len(m.accounts) {
			m.cursor = max(0, len(m.accounts)-1)
		}
		return m, waitForChange(m.changes)

	case tea.KeyMsg:
		switch m.state {
		case formView:
			return m.updateForm(msg)
		case confirmDeleteView:
			return m.updateConfirmDelete(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m mainModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.accounts)-1 {
			m.cursor++
		}
	case "c":
		if a, ok := m.selected(); ok {
			code, err := otp.GenerateTime(a, m.tick.Now)
			if err != nil {
				m.err = err
				break
			}
			if err := clipboard.WriteAll(code); err != nil {
				m.status = i18n.T("tui.status_copy_failed")
			} else {
				m.status = i18n.T("tui.status_copied")
			}
		}
	case "a":
		m.state = formView
		m.form = newAccountFormModel()
		return m, m.form.Init()
	case "d":
		if _, ok := m.selected(); ok {
			m.state = confirmDeleteView
		}
	}
	return m, nil
}

func (m mainModel) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		if a, ok := m.selected(); ok {
			if err := m.store.Remove(context.Background(), a.ID); err != nil {
				m.err = err
			} else {
				m.status = i18n.T("tui.status_deleted")
			}
		}
		m.state = listView
	case "n", "N", "esc":
		m.state = listView
	}
	return m, nil
}

func (m mainModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = listView
		return m, nil
	case "enter":
		account, err := m.form.account()
		if err != nil {
			m.form.err = err
			return m, nil
		}
		if err := m.store.Add(context.Background(), account); err != nil {
			m.form.err = err
			return m, nil
		}
		m.state = listView
		m.status = i18n.T("tui.status_added")
		return m, nil
	}
	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m mainModel) selected() (model.Account, bool) {
	if m.cursor < 0 || m.cursor >= len(m.accounts) {
		return model.Account{}, false
	}
	return m.accounts[m.cursor], true
}

func (m mainModel) View() string {
	switch m.state {
	case formView:
		return docStyle.Render(m.form.view())
	case confirmDeleteView:
		return docStyle.Render(m.confirmDeleteView())
	default:
		return docStyle.Render(m.listView())
	}
}

func (m mainModel) confirmDeleteView() string {
	a, _ := m.selected()
	body := specialStyle.Render(i18n.T("tui.confirm_delete")) + "\n\n" +
		itemStyle.Render(a.String()) + "\n\n" +
		helpStyle.Render(i18n.T("tui.help_confirm_delete"))
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(i18n.T("tui.title")), body)
}

func (m mainModel) listView() string {
	var rows string
	if len(m.accounts) == 0 {
		rows = helpStyle.Render(i18n.T("tui.empty_list"))
	}
	for i, a := range m.accounts {
		line := m.renderAccountRow(a)
		if i == m.cursor {
			line = selectedItemStyle.Render("› " + line)
		} else {
			line = itemStyle.Render("  " + line)
		}
		rows += line + "\n"
	}

	footer := helpStyle.Render(i18n.T("tui.help_list"))
	if m.status != "" {
		footer = successStyle.Render(m.status) + "\n" + footer
	}
	if m.err != nil {
		footer = errorStyle.Render(m.err.Error()) + "\n" + footer
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(i18n.T("tui.title")),
		"",
		rows,
		footer,
	)
}

// renderAccountRow formats "name  code  remaining". A generation failure is
// rendered as an error marker, never as a placeholder code.
func (m mainModel) renderAccountRow(a model.Account) string {
	name := fmt.Sprintf("%-32s", truncate(a.String(), 32))

	code, err := otp.GenerateTime(a, m.tick.Now)
	if err != nil {
		return name + errorStyle.Render(i18n.T("tui.error_invalid_secret"))
	}

	period := a.Period
	if period <= 0 {
		period = model.DefaultPeriod
	}
	remaining, ok := m.tick.Remaining[period]
	if !ok {
		remaining = scheduler.Remaining(period, m.tick.Now)
	}
	countdown := fmt.Sprintf("%3ds", remaining)
	if remaining <= 5 {
		countdown = expiringStyle.Render(countdown)
	} else {
		countdown = helpStyle.Render(countdown)
	}
	return name + codeStyle.Render(code) + "  " + countdown
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

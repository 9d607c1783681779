// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tessera-auth/tessera/internal/i18n"
	"github.com/tessera-auth/tessera/internal/model"
	"github.com/tessera-auth/tessera/internal/otp"
	"github.com/tessera-auth/tessera/internal/otpauth"
)

// Form field indexes.
const (
	fieldIssuer = iota
	fieldAccount
	fieldSecret
	fieldCount
)

// accountFormModel is the manual-entry form: service name, account name and
// secret, with the standard defaults for digits, period and algorithm.
type accountFormModel struct {
	inputs []textinput.Model
	focus  int
	err    error
}

func newAccountFormModel() accountFormModel {
	m := accountFormModel{inputs: make([]textinput.Model, fieldCount)}
	labels := map[int]string{
		fieldIssuer:  i18n.T("tui.form_issuer"),
		fieldAccount: i18n.T("tui.form_account"),
		fieldSecret:  i18n.T("tui.form_secret"),
	}
	for i := range m.inputs {
		in := textinput.New()
		in.Placeholder = labels[i]
		in.CharLimit = 128
		m.inputs[i] = in
	}
	m.inputs[fieldSecret].EchoMode = textinput.EchoPassword
	m.inputs[fieldIssuer].Focus()
	return m
}

func (m accountFormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m accountFormModel) update(msg tea.KeyMsg) (accountFormModel, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.focus = (m.focus + 1) % fieldCount
		return m.refocus(), nil
	case "shift+tab", "up":
		m.focus = (m.focus + fieldCount - 1) % fieldCount
		return m.refocus(), nil
	}
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m accountFormModel) refocus() accountFormModel {
	for i := range m.inputs {
		if i == m.focus {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return m
}

// account builds a validated Account from the form fields. The secret is
// normalized (spaces, hyphens, underscores stripped, upper-cased) and must
// decode as Base32.
func (m accountFormModel) account() (model.Account, error) {
	secret := otp.NormalizeSecret(m.inputs[fieldSecret].Value())
	if _, err := otp.DecodeSecret(secret); err != nil {
		return model.Account{}, err
	}
	a := model.Account{
		ID:          otpauth.NewID(),
		Issuer:      m.inputs[fieldIssuer].Value(),
		AccountName: m.inputs[fieldAccount].Value(),
		Secret:      secret,
	}.ApplyDefaults()
	if err := a.Validate(); err != nil {
		return model.Account{}, err
	}
	return a, nil
}

func (m accountFormModel) view() string {
	body := titleStyle.Render(i18n.T("tui.form_title")) + "\n\n"
	for i := range m.inputs {
		body += m.inputs[i].View() + "\n"
	}
	if m.err != nil {
		body += "\n" + errorStyle.Render(m.err.Error())
	}
	body += "\n" + helpStyle.Render(i18n.T("tui.help_form"))
	return lipgloss.JoinVertical(lipgloss.Left, body)
}

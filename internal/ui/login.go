// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/oncosight/oncosight-tui/internal/auth"
	"github.com/oncosight/oncosight-tui/internal/ui/styles"
)

// =============================================================================
// LOGIN MODEL
// =============================================================================

// loginModel is the email/password form.
type loginModel struct {
	theme    *styles.Theme
	email    textinput.Model
	password textinput.Model
	focused  int
	busy     bool
	errText  string
	hint     string
	width    int
}

func newLoginModel(theme *styles.Theme) loginModel {
	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 254
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	return loginModel{theme: theme, email: email, password: password}
}

func (m loginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *loginModel) resize(width, _ int) {
	m.width = width
	m.email.Width = min(width-4, 60)
	m.password.Width = min(width-4, 60)
}

// =============================================================================
// UPDATE
// =============================================================================

func (m loginModel) update(msg tea.Msg, session *auth.Manager) (loginModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && !m.busy {
		switch key.String() {
		case "tab", "shift+tab", "up", "down":
			m = m.toggleFocus()
			return m, nil

		case "enter":
			email := strings.TrimSpace(m.email.Value())
			password := m.password.Value()
			if email == "" || password == "" {
				m.errText = "Enter your email and password."
				return m, nil
			}
			m.busy = true
			m.errText = ""
			m.hint = ""
			return m, loginCmd(session, email, password)

		case "ctrl+v":
			// Resend the verification email for the typed address.
			email := strings.TrimSpace(m.email.Value())
			if email == "" {
				m.errText = "Enter your email first."
				return m, nil
			}
			return m, resendVerificationCmd(session, email)
		}
	}

	var cmd tea.Cmd
	if m.focused == 0 {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m loginModel) toggleFocus() loginModel {
	if m.focused == 0 {
		m.focused = 1
		m.email.Blur()
		m.password.Focus()
	} else {
		m.focused = 0
		m.password.Blur()
		m.email.Focus()
	}
	return m
}

// handleResult applies the outcome of a login attempt.
func (m loginModel) handleResult(err error) (loginModel, tea.Cmd) {
	m.busy = false
	if err == nil {
		m.password.SetValue("")
		return m, nil
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		m.errText = "Invalid email or password."
	case errors.Is(err, auth.ErrEmailUnverified):
		m.errText = "Your email address is not verified yet."
		m.hint = "Check your inbox, or press ctrl+v to resend the verification email."
	default:
		m.errText = "Could not log in: " + err.Error()
	}
	return m, nil
}

// =============================================================================
// COMMANDS
// =============================================================================

func loginCmd(session *auth.Manager, email, password string) tea.Cmd {
	return func() tea.Msg {
		return loginDoneMsg{err: session.Login(context.Background(), email, password)}
	}
}

func resendVerificationCmd(session *auth.Manager, email string) tea.Cmd {
	return func() tea.Msg {
		// Outcome is intentionally quiet; the backend answers the same
		// for known and unknown addresses.
		session.ResendVerification(context.Background(), email)
		return nil
	}
}

// =============================================================================
// VIEW
// =============================================================================

func (m loginModel) view() string {
	var b strings.Builder

	b.WriteString(m.theme.Header.Render("OncoSight"))
	b.WriteString("\n\n")
	b.WriteString(m.theme.FieldLabel.Render("Sign in to continue"))
	b.WriteString("\n\n")

	b.WriteString(m.theme.FieldLabel.Render("Email"))
	b.WriteString("\n")
	b.WriteString(m.email.View())
	b.WriteString("\n\n")
	b.WriteString(m.theme.FieldLabel.Render("Password"))
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")

	if m.busy {
		b.WriteString(m.theme.StatusEphemera.Render("Signing in..."))
		b.WriteString("\n")
	}
	if m.errText != "" {
		b.WriteString(m.theme.FormError.Render(m.errText))
		b.WriteString("\n")
	}
	if m.hint != "" {
		b.WriteString(m.theme.FieldLabel.Render(m.hint))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.theme.ShortcutKey.Render("enter"))
	b.WriteString(m.theme.ShortcutDesc.Render(" sign in  "))
	b.WriteString(m.theme.ShortcutKey.Render("tab"))
	b.WriteString(m.theme.ShortcutDesc.Render(" switch field  "))
	b.WriteString(m.theme.ShortcutKey.Render("ctrl+c"))
	b.WriteString(m.theme.ShortcutDesc.Render(" quit"))

	return m.theme.App.Render(b.String())
}

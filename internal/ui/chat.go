// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/oncosight/oncosight-tui/internal/chat"
	"github.com/oncosight/oncosight-tui/internal/health"
	"github.com/oncosight/oncosight-tui/internal/model"
	"github.com/oncosight/oncosight-tui/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// chatModel is the conversation view: transcript, input, and status bar.
type chatModel struct {
	theme    *styles.Theme
	engine   *chat.Engine
	renderer *markdownRenderer

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	status    health.Status
	statusMsg string
	width     int
	height    int
	ready     bool
}

func newChatModel(theme *styles.Theme, engine *chat.Engine) chatModel {
	input := textinput.New()
	input.Placeholder = "Ask a question..."
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return chatModel{
		theme:    theme,
		engine:   engine,
		input:    input,
		spinner:  sp,
		renderer: newMarkdownRenderer(80, theme.IsDark),
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m *chatModel) resize(width, height int) {
	m.width = width
	m.height = height

	// Header, input box, and status bar take five rows.
	vpHeight := height - 5
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.Width = width - 6
	m.renderer.Resize(width - 4)
	m.refresh(true)
}

// =============================================================================
// UPDATE
// =============================================================================

func (m chatModel) update(msg tea.Msg, monitor *health.Monitor) (chatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			return m.submit(monitor)
		case "ctrl+l":
			m.engine.Clear()
			m.statusMsg = ""
			m.refresh(true)
			return m, nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case sendDoneMsg:
		m.statusMsg = ""
		m.refresh(true)
		return m, nil

	case chatOpenedMsg:
		m.statusMsg = ""
		m.refresh(true)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the typed question. Sends are gated while offline: the
// question stays in the input so nothing is lost.
func (m chatModel) submit(monitor *health.Monitor) (chatModel, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.engine.Sending() {
		return m, nil
	}

	if m.status == health.StatusOffline {
		if monitor.ForceCheck(context.Background()) == health.StatusOffline {
			m.statusMsg = "Offline: message not sent. Press ctrl+o to retry the connection."
			return m, nil
		}
		m.status = health.StatusOnline
	}

	m.input.SetValue("")
	m.statusMsg = ""

	engine := m.engine
	cmd := func() tea.Msg {
		engine.Send(context.Background(), text)
		return sendDoneMsg{}
	}

	// Show the user's message immediately; the engine inserts it before
	// the network call, but the command runs asynchronously, so render
	// after a tiny defer via the same refresh on sendDoneMsg.
	return m, cmd
}

// refresh re-renders the transcript into the viewport.
func (m *chatModel) refresh(gotoBottom bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	if gotoBottom {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// VIEW
// =============================================================================

func (m chatModel) view() string {
	if !m.ready {
		return "starting..."
	}

	// The transcript may have grown since the last refresh.
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()

	var b strings.Builder
	b.WriteString(m.theme.Header.Render("OncoSight"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	prompt := m.theme.InputPrompt.Render("> ") + m.input.View()
	if m.engine.Sending() {
		prompt = m.spinner.View() + " " + m.theme.ShortcutDesc.Render("waiting for the assistant...")
	}
	b.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(prompt))
	b.WriteString("\n")
	b.WriteString(m.statusBar())
	return b.String()
}

func (m chatModel) renderTranscript() string {
	messages := m.engine.Messages()
	if len(messages) == 0 {
		return m.theme.ShortcutDesc.Render("No messages yet.")
	}

	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	if m.engine.Loading() {
		b.WriteString("\n")
		b.WriteString(m.theme.ShortcutDesc.Render("loading history..."))
	}
	return b.String()
}

func (m chatModel) renderMessage(msg *model.Message) string {
	ts := ""
	if !msg.Timestamp.IsZero() {
		ts = " " + m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	}

	switch {
	case msg.Role == model.RoleUser:
		return m.theme.UserLabel.Render("You") + ts + "\n" +
			m.theme.UserBubble.Render(msg.Content)

	case msg.IsError:
		return m.theme.AssistantLabel.Render("OncoSight") + ts + "\n" +
			m.theme.ErrorBubble.Render(msg.Content)

	default:
		var b strings.Builder
		b.WriteString(m.theme.AssistantLabel.Render("OncoSight"))
		b.WriteString(ts)
		b.WriteString("\n")
		b.WriteString(m.renderer.Render(msg.Content))
		for _, src := range msg.Sources {
			b.WriteString("\n")
			b.WriteString(m.theme.SourceLine.Render("source: " + src))
		}
		return b.String()
	}
}

func (m chatModel) statusBar() string {
	badge := m.theme.ConnectionBadge(m.status.String())
	mode := m.theme.ModeBadge.Render(string(m.engine.Mode()))

	left := fmt.Sprintf("%s  %s", badge, mode)
	help := m.theme.ShortcutKey.Render("ctrl+r") + m.theme.ShortcutDesc.Render(" recents  ") +
		m.theme.ShortcutKey.Render("ctrl+l") + m.theme.ShortcutDesc.Render(" clear  ") +
		m.theme.ShortcutKey.Render("ctrl+c") + m.theme.ShortcutDesc.Render(" quit")

	line := left + "  " + help
	if m.statusMsg != "" {
		line += "  " + m.theme.StatusEphemera.Render(m.statusMsg)
	}
	return m.theme.StatusBar.Render(line)
}

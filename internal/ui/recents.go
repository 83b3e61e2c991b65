// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oncosight/oncosight-tui/internal/storage"
	"github.com/oncosight/oncosight-tui/internal/ui/styles"
	"github.com/oncosight/oncosight-tui/internal/util"
)

// =============================================================================
// RECENTS MODEL
// =============================================================================

// recentsAction is what the recents view asks the app to do.
type recentsActionKind int

const (
	recentsNone recentsActionKind = iota
	recentsOpen
	recentsNewChat
	recentsBack
)

type recentsAction struct {
	kind   recentsActionKind
	chatID string
}

// recentsModel lists the user's chats for resuming.
type recentsModel struct {
	theme    *styles.Theme
	chats    []storage.ChatMeta
	selected int
	loading  bool
	cached   bool
	errText  string
	width    int
	height   int
}

func newRecentsModel(theme *styles.Theme) recentsModel {
	return recentsModel{theme: theme, loading: true}
}

func (m *recentsModel) resize(width, height int) {
	m.width = width
	m.height = height
}

// handleLoaded applies a finished listing fetch.
func (m recentsModel) handleLoaded(msg recentsLoadedMsg) recentsModel {
	m.loading = false
	m.chats = msg.chats
	m.cached = msg.cached
	m.selected = 0
	m.errText = ""
	if msg.err != nil && len(msg.chats) == 0 {
		m.errText = "Could not load your chats. Press esc to go back."
	}
	return m
}

// =============================================================================
// UPDATE
// =============================================================================

func (m recentsModel) update(msg tea.Msg) (recentsModel, recentsAction, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, recentsAction{}, nil
	}

	switch key.String() {
	case "esc":
		return m, recentsAction{kind: recentsBack}, nil
	case "n":
		return m, recentsAction{kind: recentsNewChat}, nil
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.chats)-1 {
			m.selected++
		}
	case "enter":
		if m.selected < len(m.chats) {
			return m, recentsAction{kind: recentsOpen, chatID: m.chats[m.selected].ChatID}, nil
		}
	}
	return m, recentsAction{}, nil
}

// =============================================================================
// VIEW
// =============================================================================

func (m recentsModel) view() string {
	var b strings.Builder
	b.WriteString(m.theme.Header.Render("OncoSight"))
	b.WriteString("\n")
	b.WriteString(m.theme.ListTitle.Render("Recent chats"))
	if m.cached {
		b.WriteString("  ")
		b.WriteString(m.theme.StatusEphemera.Render("(offline copy)"))
	}
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.theme.ShortcutDesc.Render("loading..."))
	case m.errText != "":
		b.WriteString(m.theme.FormError.Render(m.errText))
	case len(m.chats) == 0:
		b.WriteString(m.theme.ShortcutDesc.Render("No chats yet. Press n to start one."))
	default:
		maxWidth := m.width - 8
		if maxWidth < 20 {
			maxWidth = 20
		}
		for i, chat := range m.chats {
			title := chat.Title
			if title == "" {
				title = chat.ChatID
			}
			// Server titles can carry newlines; the list is one line per chat.
			line := util.Truncate(util.FirstLine(title), maxWidth)
			if !chat.UpdatedAt.IsZero() {
				line += "  " + m.theme.ListMeta.Render(chat.UpdatedAt.Format("Jan 2 15:04"))
			}
			if i == m.selected {
				b.WriteString(m.theme.ListSelected.Render("> " + line))
			} else {
				b.WriteString(m.theme.ListItem.Render(line))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.theme.ShortcutKey.Render("enter"))
	b.WriteString(m.theme.ShortcutDesc.Render(" open  "))
	b.WriteString(m.theme.ShortcutKey.Render("n"))
	b.WriteString(m.theme.ShortcutDesc.Render(" new chat  "))
	b.WriteString(m.theme.ShortcutKey.Render("esc"))
	b.WriteString(m.theme.ShortcutDesc.Render(" back"))

	return m.theme.App.Render(b.String())
}

// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oncosight/oncosight-tui/internal/auth"
	"github.com/oncosight/oncosight-tui/internal/chat"
	"github.com/oncosight/oncosight-tui/internal/health"
	"github.com/oncosight/oncosight-tui/internal/storage"
	"github.com/oncosight/oncosight-tui/internal/ui/styles"
)

// =============================================================================
// VIEWS
// =============================================================================

type view int

const (
	viewLogin view = iota
	viewChat
	viewRecents
)

// statusPollInterval is how often the UI re-reads the health monitor.
const statusPollInterval = 2 * time.Second

// =============================================================================
// APP MODEL
// =============================================================================

// Deps carries the wired components into the UI.
type Deps struct {
	Session *auth.Manager
	Engine  *chat.Engine
	History *chat.HistoryClient
	Monitor *health.Monitor
	Cache   *storage.Cache
	Theme   *styles.Theme
}

// App is the root Bubble Tea model.
type App struct {
	deps   Deps
	theme  *styles.Theme
	view   view
	width  int
	height int
	status health.Status

	login   loginModel
	chat    chatModel
	recents recentsModel
}

// NewApp builds the root model. An existing session skips the login view.
func NewApp(deps Deps) *App {
	app := &App{
		deps:    deps,
		theme:   deps.Theme,
		login:   newLoginModel(deps.Theme),
		chat:    newChatModel(deps.Theme, deps.Engine),
		recents: newRecentsModel(deps.Theme),
	}
	if deps.Session.Authenticated() {
		app.view = viewChat
	}
	return app
}

// =============================================================================
// MESSAGES
// =============================================================================

type statusTickMsg struct{}

type connectionMsg struct{ status health.Status }

type loginDoneMsg struct{ err error }

type sendDoneMsg struct{}

type chatOpenedMsg struct{}

type recentsLoadedMsg struct {
	chats  []storage.ChatMeta
	cached bool
	err    error
}

func statusTick() tea.Cmd {
	return tea.Tick(statusPollInterval, func(time.Time) tea.Msg {
		return statusTickMsg{}
	})
}

// =============================================================================
// TEA INTERFACE
// =============================================================================

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.login.Init(), a.chat.Init(), statusTick())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.chat.resize(msg.Width, msg.Height)
		a.login.resize(msg.Width, msg.Height)
		a.recents.resize(msg.Width, msg.Height)
		return a, nil

	case statusTickMsg:
		a.status = a.deps.Monitor.Status()
		a.chat.status = a.status
		return a, statusTick()

	case connectionMsg:
		a.status = msg.status
		a.chat.status = msg.status
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "ctrl+r":
			if a.view == viewChat {
				a.view = viewRecents
				return a, a.loadRecents()
			}
		case "ctrl+o":
			return a, a.forceCheck()
		}

	case loginDoneMsg:
		model, cmd := a.login.handleResult(msg.err)
		a.login = model
		if msg.err == nil {
			a.view = viewChat
		}
		return a, cmd

	case recentsLoadedMsg:
		a.recents = a.recents.handleLoaded(msg)
		return a, nil
	}

	return a.routeToView(msg)
}

// routeToView forwards everything else to the active view.
func (a *App) routeToView(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch a.view {
	case viewLogin:
		model, cmd := a.login.update(msg, a.deps.Session)
		a.login = model
		return a, cmd

	case viewRecents:
		model, action, cmd := a.recents.update(msg)
		a.recents = model
		switch action.kind {
		case recentsOpen:
			a.view = viewChat
			return a, a.openChat(action.chatID)
		case recentsNewChat:
			a.view = viewChat
			return a, a.openChat("")
		case recentsBack:
			a.view = viewChat
		}
		return a, cmd

	default:
		model, cmd := a.chat.update(msg, a.deps.Monitor)
		a.chat = model
		return a, cmd
	}
}

func (a *App) View() string {
	switch a.view {
	case viewLogin:
		return a.login.view()
	case viewRecents:
		return a.recents.view()
	default:
		return a.chat.view()
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

func (a *App) openChat(chatID string) tea.Cmd {
	engine := a.deps.Engine
	return func() tea.Msg {
		engine.Open(context.Background(), chatID)
		return chatOpenedMsg{}
	}
}

// loadRecents prefers the backend listing and falls back to the local
// cache when offline. A fresh listing refreshes the cache.
func (a *App) loadRecents() tea.Cmd {
	history := a.deps.History
	cache := a.deps.Cache
	session := a.deps.Session

	return func() tea.Msg {
		var userID string
		if id := session.Identity(); id != nil {
			userID = id.UserID
		}

		metas, err := history.Metadata(context.Background())
		if err != nil {
			if cache == nil {
				return recentsLoadedMsg{err: err}
			}
			cached, cacheErr := cache.List(userID)
			if cacheErr != nil {
				return recentsLoadedMsg{err: err}
			}
			return recentsLoadedMsg{chats: cached, cached: true, err: err}
		}

		chats := make([]storage.ChatMeta, 0, len(metas))
		for _, m := range metas {
			chats = append(chats, storage.ChatMeta{
				ChatID:    m.ChatID,
				Title:     m.Title,
				UpdatedAt: parseListingTime(m.CreatedAt),
			})
		}
		if cache != nil {
			if err := cache.Replace(userID, chats); err == nil {
				// Cache refreshed.
			}
		}
		return recentsLoadedMsg{chats: chats}
	}
}

func (a *App) forceCheck() tea.Cmd {
	monitor := a.deps.Monitor
	return func() tea.Msg {
		status := monitor.ForceCheck(context.Background())
		return connectionMsg{status: status}
	}
}

func parseListingTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

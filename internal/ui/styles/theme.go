// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the OncoSight TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application, adjusted to the
// terminal's color capability.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// LAYOUT
	// ==========================================================================

	App    lipgloss.Style
	Header lipgloss.Style
	Title  lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserBubble     lipgloss.Style
	AssistantText  lipgloss.Style
	ErrorBubble    lipgloss.Style
	SourceLine     lipgloss.Style
	Timestamp      lipgloss.Style

	// ==========================================================================
	// INPUT
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	FieldLabel     lipgloss.Style
	FormError      lipgloss.Style

	// ==========================================================================
	// STATUS BAR
	// ==========================================================================

	StatusBar      lipgloss.Style
	BadgeOnline    lipgloss.Style
	BadgeOffline   lipgloss.Style
	BadgeChecking  lipgloss.Style
	ModeBadge      lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style
	StatusEphemera lipgloss.Style

	// ==========================================================================
	// LISTS
	// ==========================================================================

	ListTitle    lipgloss.Style
	ListItem     lipgloss.Style
	ListSelected lipgloss.Style
	ListMeta     lipgloss.Style

	Spinner lipgloss.Style
}

// Palette anchors. The muted teal reads as clinical without being cold.
var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#C4B5FD"}
	colorError   = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	colorOK      = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}
	colorWarn    = lipgloss.AdaptiveColor{Light: "#A16207", Dark: "#FACC15"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
)

// NewTheme builds the theme for the requested mode: "dark", "light", or
// "auto" to follow the terminal background.
func NewTheme(mode string) *Theme {
	output := termenv.DefaultOutput()

	isDark := output.HasDarkBackground()
	switch mode {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: output.Profile,
	}

	t.App = lipgloss.NewStyle().Padding(0, 1)
	t.Header = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true).
		Padding(0, 1)
	t.Title = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	t.UserBubble = lipgloss.NewStyle().
		Foreground(colorAccent).
		PaddingLeft(2)
	t.AssistantText = lipgloss.NewStyle().PaddingLeft(2)
	t.ErrorBubble = lipgloss.NewStyle().
		Foreground(colorError).
		PaddingLeft(2)
	t.SourceLine = lipgloss.NewStyle().
		Foreground(colorMuted).
		Italic(true).
		PaddingLeft(4)
	t.Timestamp = lipgloss.NewStyle().Foreground(colorMuted)

	t.InputContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorMuted).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	t.FieldLabel = lipgloss.NewStyle().Foreground(colorMuted)
	t.FormError = lipgloss.NewStyle().Foreground(colorError)

	t.StatusBar = lipgloss.NewStyle().Foreground(colorMuted)
	t.BadgeOnline = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	t.BadgeOffline = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	t.BadgeChecking = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	t.ModeBadge = lipgloss.NewStyle().Foreground(colorAccent)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(colorPrimary)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(colorMuted)
	t.StatusEphemera = lipgloss.NewStyle().Foreground(colorWarn)

	t.ListTitle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	t.ListItem = lipgloss.NewStyle().PaddingLeft(2)
	t.ListSelected = lipgloss.NewStyle().
		PaddingLeft(1).
		Foreground(colorAccent).
		Bold(true)
	t.ListMeta = lipgloss.NewStyle().Foreground(colorMuted)

	t.Spinner = lipgloss.NewStyle().Foreground(colorPrimary)

	return t
}

// ConnectionBadge renders the status bar badge for a connection state.
func (t *Theme) ConnectionBadge(status string) string {
	switch status {
	case "online":
		return t.BadgeOnline.Render("● online")
	case "offline":
		return t.BadgeOffline.Render("● offline")
	default:
		return t.BadgeChecking.Render("● checking")
	}
}

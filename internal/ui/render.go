// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer wraps glamour with width tracking so the renderer is
// rebuilt only on resize.
type markdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
	dark     bool
}

func newMarkdownRenderer(width int, dark bool) *markdownRenderer {
	r := &markdownRenderer{width: width, dark: dark}
	r.rebuild()
	return r
}

func (r *markdownRenderer) rebuild() {
	style := "light"
	if r.dark {
		style = "dark"
	}
	width := r.width
	if width < 20 {
		width = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		// Render falls back to plain text.
		r.renderer = nil
		return
	}
	r.renderer = renderer
}

// Resize adjusts the wrap width.
func (r *markdownRenderer) Resize(width int) {
	if width == r.width {
		return
	}
	r.width = width
	r.rebuild()
}

// Render formats markdown for the terminal, returning the input unchanged
// when rendering is unavailable.
func (r *markdownRenderer) Render(md string) string {
	if r.renderer == nil {
		return md
	}
	out, err := r.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

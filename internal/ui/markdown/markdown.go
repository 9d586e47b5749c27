// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown renders answers for the terminal with glamour.
package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 80

// Renderer renders markdown at a fixed width and style. If glamour cannot
// be initialised or fails on some input, the markdown is returned as-is so
// an answer is never lost to a rendering problem.
type Renderer struct {
	mu    sync.Mutex
	style string
	width int
	tr    *glamour.TermRenderer
}

// New creates a renderer. style is a glamour standard style name ("dark",
// "light", "notty") or "auto"; width <= 0 uses DefaultWidth.
func New(style string, width int) *Renderer {
	r := &Renderer{}
	r.configure(style, width)
	return r
}

// Resize rebuilds the renderer when style or width changed.
func (r *Renderer) Resize(style string, width int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width <= 0 {
		width = DefaultWidth
	}
	if style == r.style && width == r.width {
		return
	}
	r.configureLocked(style, width)
}

// Width returns the wrap width in use.
func (r *Renderer) Width() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width
}

// Render renders md, trimming the blank margin glamour adds around blocks.
func (r *Renderer) Render(md string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tr == nil {
		return md
	}
	out, err := r.tr.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

func (r *Renderer) configure(style string, width int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width <= 0 {
		width = DefaultWidth
	}
	r.configureLocked(style, width)
}

func (r *Renderer) configureLocked(style string, width int) {
	r.style = style
	r.width = width

	styleOpt := glamour.WithStandardStyle(style)
	if style == "" || style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	tr, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		r.tr = nil
		return
	}
	r.tr = tr
}

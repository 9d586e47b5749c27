// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds the styles the chat view renders with.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// CONVERSATION
	// ==========================================================================

	Question      lipgloss.Style
	QuestionLabel lipgloss.Style
	Answer        lipgloss.Style
	AnswerLabel   lipgloss.Style
	Selected      lipgloss.Style
	Source        lipgloss.Style
	SourceLink    lipgloss.Style

	StatusPending   lipgloss.Style
	StatusComplete  lipgloss.Style
	StatusErrored   lipgloss.Style
	StatusCancelled lipgloss.Style

	// ==========================================================================
	// FEEDBACK
	// ==========================================================================

	ReactionActive   lipgloss.Style
	ReactionDown     lipgloss.Style
	ReactionInactive lipgloss.Style
	Form             lipgloss.Style
	FormTitle        lipgloss.Style
	FormFocused      lipgloss.Style
	FormError        lipgloss.Style
	FormSuccess      lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS BAR
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	StatusBar      lipgloss.Style
	KeyHint        lipgloss.Style
	ErrorBanner    lipgloss.Style
	Notice         lipgloss.Style
	Muted          lipgloss.Style
}

// NewTheme builds a theme for mode. ModeAuto asks the terminal whether its
// background is dark; ModeDark and ModeLight force the adaptive colors.
func NewTheme(mode string) *Theme {
	isDark := termenv.HasDarkBackground()
	switch mode {
	case ModeDark:
		isDark = true
	case ModeLight:
		isDark = false
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// GlamourStyle names the glamour standard style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return ModeDark
	}
	return ModeLight
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.HeaderSubtitle = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)

	t.Question = lipgloss.NewStyle().
		Foreground(QuestionFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(QuestionBorder).
		PaddingLeft(1)
	t.QuestionLabel = lipgloss.NewStyle().Bold(true).Foreground(QuestionBorder)
	t.Answer = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AnswerBorder).
		PaddingLeft(1)
	t.AnswerLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.Selected = t.Answer.BorderForeground(Purple).BorderStyle(lipgloss.ThickBorder())
	t.Source = lipgloss.NewStyle().Foreground(TextSecondary)
	t.SourceLink = lipgloss.NewStyle().Foreground(LinkColor).Underline(true)

	t.StatusPending = lipgloss.NewStyle().Foreground(Amber).Italic(true)
	t.StatusComplete = lipgloss.NewStyle().Foreground(Emerald)
	t.StatusErrored = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.StatusCancelled = lipgloss.NewStyle().Foreground(Amber)

	t.ReactionActive = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.ReactionDown = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.ReactionInactive = lipgloss.NewStyle().Foreground(TextMuted)
	t.Form = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 1)
	t.FormTitle = lipgloss.NewStyle().Bold(true).Foreground(TextPrimary)
	t.FormFocused = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.FormError = lipgloss.NewStyle().Foreground(Rose)
	t.FormSuccess = lipgloss.NewStyle().Foreground(Emerald)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.KeyHint = lipgloss.NewStyle().Foreground(TextMuted)
	t.ErrorBanner = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.Notice = lipgloss.NewStyle().Foreground(Emerald)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // >= 100 columns
)

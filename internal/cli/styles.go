// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/askthread/internal/ui/styles"
)

// init matches lipgloss output to what stdout can show, so piped output
// carries no escape sequences.
func init() {
	lipgloss.SetColorProfile(ColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)
)

// rule returns a horizontal line of n box-drawing characters.
func rule(n int) string {
	line := make([]rune, n)
	for i := range line {
		line[i] = '─'
	}
	return infoStyle.Render(string(line))
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles holds the colors and lipgloss styles of the askthread
terminal UI.

Colors are lipgloss.AdaptiveColor values, so they follow the terminal
background. NewTheme can force a dark or light rendering when detection is
wrong:

	theme := styles.NewTheme(cfg.UI.Theme)
	fmt.Println(theme.Question.Render(question))

State is never conveyed by color alone: StatusIndicators gives each state an
ASCII marker, and RenderSuccess, RenderError, RenderWarning and RenderInfo
combine marker and color for line-oriented output such as the REPL.
*/
package styles

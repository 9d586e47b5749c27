// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/askthread/internal/config"
)

// statusTimeout is how long a transient status message stays visible.
const statusTimeout = 4 * time.Second

// ViewChangedMsg signals that the session changed. The model re-reads the
// controller's view on receipt, so late or coalesced signals never make it
// show older state.
type ViewChangedMsg struct{}

// UIConfigMsg applies changed UI settings.
type UIConfigMsg config.UIConfig

// statusClearMsg clears the status line if it still shows message seq.
type statusClearMsg struct {
	seq int
}

// exportDoneMsg reports the outcome of a transcript export.
type exportDoneMsg struct {
	path string
	err  error
}

func clearStatusAfter(seq int) tea.Cmd {
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return statusClearMsg{seq: seq}
	})
}

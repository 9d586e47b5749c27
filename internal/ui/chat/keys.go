// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings of the chat view.
//
// Upvote, Downvote and the Flag bindings are printable characters; they act
// on the conversation only while the question input is empty, otherwise they
// are typed into it.
type KeyMap struct {
	Submit   key.Binding
	Cancel   key.Binding
	NewChat  key.Binding
	Prev     key.Binding
	Next     key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	Upvote         key.Binding
	Downvote       key.Binding
	FlagIncorrect  key.Binding
	FlagIrrelevant key.Binding
	FlagUnaddress  key.Binding
	FocusNote      key.Binding
	SendComment    key.Binding
	CloseForm      key.Binding

	Copy   key.Binding
	Export key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "ask"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "stop answer"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		Prev: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("up", "previous answer"),
		),
		Next: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("down", "next answer"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Upvote: key.NewBinding(
			key.WithKeys("+"),
			key.WithHelp("+", "helpful"),
		),
		Downvote: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "not helpful"),
		),
		FlagIncorrect: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "incorrect"),
		),
		FlagIrrelevant: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "irrelevant"),
		),
		FlagUnaddress: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "didn't answer"),
		),
		FocusNote: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "edit note"),
		),
		SendComment: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "send feedback"),
		),
		CloseForm: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close form"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy answer"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "export"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel, k.NewChat, k.Upvote, k.Downvote, k.Help, k.Quit}
}

// FormHelp returns the bindings shown under an open comment form.
func (k KeyMap) FormHelp() []key.Binding {
	return []key.Binding{k.FlagIncorrect, k.FlagIrrelevant, k.FlagUnaddress, k.FocusNote, k.SendComment, k.CloseForm}
}

// FullHelp returns every binding grouped for the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Cancel, k.NewChat, k.Quit},
		{k.Prev, k.Next, k.PageUp, k.PageDown},
		{k.Upvote, k.Downvote, k.FlagIncorrect, k.FlagIrrelevant, k.FlagUnaddress},
		{k.FocusNote, k.SendComment, k.CloseForm, k.Copy, k.Export},
	}
}

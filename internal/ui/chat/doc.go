// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the Bubble Tea front end of a conversation session.
//
// The model renders a session.View and turns keys into session intents. It
// keeps only presentation state (focus, selection, the note being typed,
// a glamour render cache); conversation and feedback state live in the
// session. Run wires a session to a tea.Program:
//
//	go sess.Run(ctx)
//	err := chat.Run(ctx, sess, chat.RunOptions{
//		Options:    chat.Options{UI: cfg.UI, Logger: log},
//		ConfigPath: path,
//		AltScreen:  true,
//	})
//
// # Keys
//
//	enter   ask            C-x  stop answer     C-n  new conversation
//	up/down select answer  +/-  rate selected   1-3  flag issues
//	tab     edit note      C-s  send feedback   esc  close form
//	C-y     copy answer    C-e  export          F1   help
//
// Rating and flag keys act only while the question input is empty.
package chat

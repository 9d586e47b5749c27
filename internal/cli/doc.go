// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the line-oriented front ends of askthread.
//
// # Front Ends
//
//   - REPL: interactive conversation with liner line editing and history
//   - Ask: one question, printed as text, markdown or JSON
//
// Both drive a session through the Session interface and wait for answers
// by subscribing to it, so they behave exactly like the TUI.
//
// # REPL Commands
//
//	/help, /h            Show available commands
//	/clear, /c           Start a new conversation
//	/up [n], /down [n]   Rate answer n (default: the latest)
//	/comment [n]         Tell us what went wrong with answer n
//	/export [format]     Save the conversation (markdown, json, text)
//	/stats, /s           Show session statistics
//	/quit, /q            Exit
//	Ctrl+C               Stop the current answer
//	Ctrl+D               Exit
//
// Output is coloured only when stdout is a terminal and NO_COLOR is unset.
package cli

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session composes the conversation store and the feedback manager
// into the single object a presentation layer talks to.
//
// # Key Types
//
//   - Session: intents, queries and subscriptions over one conversation
//   - View: a conversation snapshot paired with the feedback state
//
// # Usage
//
//	sess := session.New(client, session.Options{Logger: log})
//	go sess.Run(ctx)
//	sess.Subscribe(func(v session.View) { render(v) })
//	_ = sess.SubmitQuery("What is X?")
package session

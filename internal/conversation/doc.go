// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation owns the ordered list of question/answer entries and
// the single global generation state.
//
// The Store is event sourced: user intents (SubmitQuery, CancelGeneration,
// Reset) and service events (HandleEvent) are applied one at a time under the
// store lock, and every change produces a new versioned Snapshot for
// subscribers. At most one question is in flight at any time.
//
// # Usage
//
//	store := conversation.NewStore(client, conversation.WithLogger(log))
//	unsubscribe := store.Subscribe(func(s conversation.Snapshot) { render(s) })
//	defer unsubscribe()
//	go store.Run(ctx)
//	_ = store.SubmitQuery("What is X?")
package conversation

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package answer defines the contract with the remote answer-generation service.
//
// The conversation core never talks HTTP directly. It submits a Request and
// then observes the lifecycle of that request as a stream of Events:
//
//	started -> chunk* -> completed | failed | cancelled
//
// # Key Types
//
//   - Client: submit, cancel, reset and feedback operations plus the event channel
//   - Event: one lifecycle notification, tagged with the RequestID it belongs to
//   - HTTPClient: Client implementation over HTTP with Server-Sent Events
//   - DemoClient: offline Client that streams a canned answer
//
// # Wire Protocol
//
// Questions are posted to /v1/threads/chat/stream (or /v1/threads/{id}/chat/stream
// for follow-ups) and answered with the SSE events "started", "chunk",
// "completed" and "error". Feedback is posted to
// /v1/question-answers/{id}/feedback.
//
// Tests should use the answertest subpackage, which records calls and only
// emits events the test pushes explicitly.
package answer

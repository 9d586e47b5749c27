// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders a conversation transcript for saving or printing.
//
// # Supported Formats
//
//   - Markdown: human-readable, with sources as links and feedback noted
//   - JSON: machine-readable, entries plus feedback records
//   - Text: plain output for pipes and non-terminal stdout
//
// # Usage
//
//	t := export.NewTranscript(sess.Snapshot(), sessFeedbackState)
//	path, err := export.ToFile(t, export.NewMarkdownExporter(nil), nil)
package export

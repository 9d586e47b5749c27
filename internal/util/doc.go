// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the export, config and UI code.
//
// String helpers count runes or terminal cells rather than bytes:
//   - TruncateRunes, TruncateRunesNoEllipsis: rune-based truncation
//   - StringWidth, TruncateWidth: cell-based measurement via go-runewidth
//   - FirstLine: one-line previews of multi-line answers
//
// AtomicWriteFile writes through a temp file, fsync and rename so an
// interrupted export or config save never leaves a half-written file.
//
//	err := util.AtomicWriteFile(path, data, 0o644)
package util

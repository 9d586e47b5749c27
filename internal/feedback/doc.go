// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package feedback tracks reactions and detailed comments on completed answers.
//
// Only one comment form is open across the whole conversation. Opening a
// form for another entry discards the previous draft. Detailed submissions
// are guarded against double submit, and a successful submission closes its
// form after a short confirmation delay through a cancellable Scheduler.
package feedback

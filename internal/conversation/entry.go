// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"strings"
	"time"

	"github.com/jeranaias/askthread/internal/answer"
)

// =============================================================================
// STATUS TYPES
// =============================================================================

// Status is the lifecycle state of a single entry.
type Status int

const (
	StatusPending Status = iota
	StatusStreaming
	StatusComplete
	StatusErrored
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusStreaming:
		return "streaming"
	case StatusComplete:
		return "complete"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether the entry will never change again.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusErrored
}

// GenerationState is the global state of the single in-flight question.
type GenerationState int

const (
	GenerationIdle GenerationState = iota
	GenerationPreparing
	GenerationGenerating
)

// String returns the lower-case name of the state.
func (g GenerationState) String() string {
	switch g {
	case GenerationIdle:
		return "idle"
	case GenerationPreparing:
		return "preparing"
	case GenerationGenerating:
		return "generating"
	default:
		return "unknown"
	}
}

// =============================================================================
// ENTRY
// =============================================================================

// Entry is one question/answer pair.
type Entry struct {
	// LocalID is assigned on submit and never changes.
	LocalID string `json:"local_id"`
	// ID is assigned by the service once generation starts.
	ID string `json:"id,omitempty"`

	Question        string          `json:"question"`
	Answer          string          `json:"answer"`
	Sources         []answer.Source `json:"sources,omitempty"`
	FeedbackEnabled bool            `json:"feedback_enabled"`
	Status          Status          `json:"status"`
	Cancelled       bool            `json:"cancelled,omitempty"`
	ErrorMessage    string          `json:"error,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Key returns the service ID when known, else the local ID.
func (e Entry) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return e.LocalID
}

// entry is the mutable, store-owned form of Entry.
type entry struct {
	Entry
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	buf strings.Builder
}

func (e *entry) snapshot() Entry {
	out := e.Entry
	out.Answer = e.buf.String()
	if e.Sources != nil {
		out.Sources = append([]answer.Source(nil), e.Sources...)
	}
	return out
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is an immutable copy of the conversation.
type Snapshot struct {
	Version         uint64          `json:"version"`
	Entries         []Entry         `json:"entries"`
	GenerationState GenerationState `json:"generation_state"`
	LastError       string          `json:"last_error,omitempty"`
	Cancelling      bool            `json:"cancelling,omitempty"`
}

// Busy reports whether a question is in flight and submission must be disabled.
func (s Snapshot) Busy() bool {
	return s.GenerationState != GenerationIdle
}

// Entry looks up an entry by service ID or local ID.
func (s Snapshot) Entry(key string) (Entry, bool) {
	for i := len(s.Entries) - 1; i >= 0; i-- {
		e := s.Entries[i]
		if (e.ID != "" && e.ID == key) || e.LocalID == key {
			return e, true
		}
	}
	return Entry{}, false
}

// Last returns the newest entry.
func (s Snapshot) Last() (Entry, bool) {
	if len(s.Entries) == 0 {
		return Entry{}, false
	}
	return s.Entries[len(s.Entries)-1], true
}

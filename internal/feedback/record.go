// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package feedback

import "github.com/jeranaias/askthread/internal/answer"

// SubmissionState tracks delivery of a detailed comment.
type SubmissionState int

const (
	SubmissionIdle SubmissionState = iota
	SubmissionSubmitting
	SubmissionSubmitted
	SubmissionFailed
)

// String returns the lower-case name of the state.
func (s SubmissionState) String() string {
	switch s {
	case SubmissionIdle:
		return "idle"
	case SubmissionSubmitting:
		return "submitting"
	case SubmissionSubmitted:
		return "submitted"
	case SubmissionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Draft is the structured comment attached to a downvote.
type Draft = answer.Detail

// Record is the feedback given on one entry.
type Record struct {
	EntryID  string          `json:"entry_id"`
	Reaction answer.Reaction `json:"reaction,omitempty"`
	// CommentDraft is non-nil only while the entry's comment form is open.
	CommentDraft    *Draft          `json:"comment_draft,omitempty"`
	SubmissionState SubmissionState `json:"submission_state"`
	ErrorMessage    string          `json:"error,omitempty"`
}

// FormOpen reports whether the record's comment form is open.
func (r Record) FormOpen() bool {
	return r.CommentDraft != nil
}

type record struct {
	Record
	attempt int
}

func (r *record) snapshot() Record {
	out := r.Record
	if r.CommentDraft != nil {
		d := *r.CommentDraft
		out.CommentDraft = &d
	}
	return out
}

// State is a copy of all feedback state.
type State struct {
	Version       uint64            `json:"version"`
	OpenCommentID string            `json:"open_comment_id,omitempty"`
	Records       map[string]Record `json:"records"`
}

// Record returns the record for entryID, or a zero record for that entry.
func (s State) Record(entryID string) Record {
	if rec, ok := s.Records[entryID]; ok {
		return rec
	}
	return Record{EntryID: entryID}
}

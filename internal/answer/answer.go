// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package answer defines the contract with the remote answer-generation service.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventKind identifies a lifecycle event emitted for a submitted question.
type EventKind int

const (
	EventStarted EventKind = iota + 1
	EventChunk
	EventCompleted
	EventFailed
	EventCancelled
)

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventChunk:
		return "chunk"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Terminal reports whether the event ends a generation.
func (k EventKind) Terminal() bool {
	return k == EventCompleted || k == EventFailed || k == EventCancelled
}

// Source is a reference document attached to a completed answer.
type Source struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	URL      string `json:"source_url"`
}

// Event is a single lifecycle notification from the service.
//
// RequestID echoes the Request that caused the event. ID is the identifier the
// service assigned to the question/answer pair and is empty until started.
type Event struct {
	Kind      EventKind
	RequestID string
	ID        string
	Delta     string
	Answer    string
	Sources   []Source
	Message   string
}

// Started builds an EventStarted.
func Started(requestID, id string) Event {
	return Event{Kind: EventStarted, RequestID: requestID, ID: id}
}

// Chunk builds an EventChunk carrying a piece of answer text.
func Chunk(requestID, id, delta string) Event {
	return Event{Kind: EventChunk, RequestID: requestID, ID: id, Delta: delta}
}

// Completed builds an EventCompleted with the final answer.
func Completed(requestID, id, text string, sources []Source) Event {
	return Event{Kind: EventCompleted, RequestID: requestID, ID: id, Answer: text, Sources: sources}
}

// Failed builds an EventFailed.
func Failed(requestID, id, message string) Event {
	return Event{Kind: EventFailed, RequestID: requestID, ID: id, Message: message}
}

// Cancelled builds an EventCancelled.
func Cancelled(requestID, id string) Event {
	return Event{Kind: EventCancelled, RequestID: requestID, ID: id}
}

// =============================================================================
// FEEDBACK TYPES
// =============================================================================

// Reaction is the coarse feedback signal on a completed answer.
type Reaction string

const (
	ReactionNone     Reaction = ""
	ReactionUpvote   Reaction = "upvote"
	ReactionDownvote Reaction = "downvote"
)

// Valid reports whether r can be submitted to the service.
func (r Reaction) Valid() bool {
	return r == ReactionUpvote || r == ReactionDownvote
}

// ParseReaction converts user input into a Reaction.
func ParseReaction(s string) (Reaction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "upvote", "up", "+":
		return ReactionUpvote, nil
	case "downvote", "down", "-":
		return ReactionDownvote, nil
	}
	return ReactionNone, ErrInvalidReaction
}

// Detail is the structured comment attached to a downvote.
type Detail struct {
	Incorrect   bool   `json:"incorrect"`
	Irrelevant  bool   `json:"irrelevant"`
	Unaddressed bool   `json:"unaddressed"`
	Note        string `json:"issue"`
}

// Empty reports whether no issue is flagged and no note is written.
func (d Detail) Empty() bool {
	return !d.Incorrect && !d.Irrelevant && !d.Unaddressed && strings.TrimSpace(d.Note) == ""
}

// =============================================================================
// CLIENT CONTRACT
// =============================================================================

// Request is a question submitted for answering.
type Request struct {
	RequestID string
	Question  string
}

// FeedbackSender attaches feedback to a question/answer pair.
type FeedbackSender interface {
	// SendFeedback blocks until the service accepts or rejects the feedback.
	SendFeedback(ctx context.Context, id string, reaction Reaction, detail *Detail) error
}

// Client is the answer-generation service as seen by the conversation core.
//
// Submit, Cancel and Reset never block. The outcome of a Submit is observed
// only through Events, and every event carries the RequestID it belongs to.
type Client interface {
	FeedbackSender

	Submit(req Request)
	Cancel()
	// Reset forgets the remote thread so the next Submit opens a new one.
	Reset()
	Events() <-chan Event
}

// =============================================================================
// ERRORS
// =============================================================================

// ValidationError is returned synchronously for input that can never succeed.
// Nothing is changed when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var (
	// ErrInvalidReaction is returned for reactions other than upvote or downvote.
	ErrInvalidReaction = &ValidationError{Field: "reaction", Reason: "must be upvote or downvote"}

	// ErrNotConfigured indicates the service base URL is missing.
	ErrNotConfigured = errors.New("answer service not configured")

	// ErrStreamTruncated indicates the answer stream ended without a terminal event.
	ErrStreamTruncated = errors.New("answer stream ended unexpectedly")
)

// ServiceError is a non-success response from the answer service.
type ServiceError struct {
	Status  int
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("answer service error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("answer service error (HTTP %d): %s", e.Status, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

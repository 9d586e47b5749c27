// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/askthread/internal/answer"
)

var (
	// ErrEmptyQuery is returned when the question is blank after trimming.
	ErrEmptyQuery = &answer.ValidationError{Field: "query", Reason: "must not be empty"}

	// ErrGenerationInProgress is returned when a question is submitted while another is in flight.
	ErrGenerationInProgress = errors.New("a question is already being answered")

	// ErrNotGenerating is returned by CancelGeneration when no answer is streaming.
	ErrNotGenerating = errors.New("no answer is being generated")
)

// Drop reasons reported to Hooks.OnEventDropped.
const (
	DropNoPending     = "no pending entry"
	DropUnknownID     = "unknown id"
	DropNotStarted    = "chunk before started"
	DropAfterTerminal = "event after terminal state"
	DropMissingID     = "started without id"
	DropUnknownKind   = "unknown event kind"
)

// Hooks are optional callbacks fired after the corresponding change is applied.
// They run outside the store lock.
type Hooks struct {
	OnQuerySubmit       func(question string)
	OnAnswerCompleted   func(e Entry)
	OnAnswerFailed      func(e Entry)
	OnConversationReset func()
	OnEventDropped      func(ev answer.Event, reason string)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for dropped events.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log.With().Str("component", "conversation").Logger() }
}

// WithHooks installs lifecycle callbacks.
func WithHooks(h Hooks) Option {
	return func(s *Store) { s.hooks = h }
}

// WithIDGenerator overrides how local entry IDs are generated.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// Store holds the conversation and is the only writer of its entries and of
// the global generation state. All methods are safe for concurrent use; each
// one runs to completion under the store lock.
type Store struct {
	client answer.Client
	log    zerolog.Logger
	hooks  Hooks
	newID  func() string
	now    func() time.Time

	mu         sync.Mutex
	entries    []*entry
	state      GenerationState
	cancelling bool
	lastError  string
	version    uint64
	subs       []subscriber
	nextSub    int
}

// NewStore creates an empty conversation backed by client.
func NewStore(client answer.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		log:    zerolog.Nop(),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// INTENTS
// =============================================================================

// SubmitQuery appends a new entry for text and asks the service to answer it.
// It never blocks on the service. Blank text and submissions while a question
// is in flight are rejected without any state change.
func (s *Store) SubmitQuery(text string) error {
	question := normalizeQuery(text)
	if question == "" {
		return ErrEmptyQuery
	}

	s.mu.Lock()
	if s.state != GenerationIdle {
		state := s.state
		s.mu.Unlock()
		s.log.Debug().Str("state", state.String()).Msg("ignoring submit while busy")
		return ErrGenerationInProgress
	}

	e := &entry{Entry: Entry{
		LocalID:   s.newID(),
		Question:  question,
		Status:    StatusPending,
		CreatedAt: s.now(),
	}}
	s.entries = append(s.entries, e)
	s.state = GenerationPreparing
	s.lastError = ""
	snap := s.commitLocked()
	s.mu.Unlock()

	s.client.Submit(answer.Request{RequestID: e.LocalID, Question: question})
	if s.hooks.OnQuerySubmit != nil {
		s.hooks.OnQuerySubmit(question)
	}
	s.publish(snap)
	return nil
}

// CancelGeneration asks the service to stop the streaming answer. The entry
// stays in flight until the service confirms with a terminal event.
func (s *Store) CancelGeneration() error {
	s.mu.Lock()
	if s.state != GenerationGenerating {
		s.mu.Unlock()
		return ErrNotGenerating
	}
	if s.cancelling {
		s.mu.Unlock()
		return nil
	}
	s.cancelling = true
	snap := s.commitLocked()
	s.mu.Unlock()

	s.client.Cancel()
	s.publish(snap)
	return nil
}

// Reset clears the conversation unconditionally, cancelling any question in flight.
func (s *Store) Reset() {
	s.mu.Lock()
	inflight := s.state != GenerationIdle
	s.entries = nil
	s.state = GenerationIdle
	s.cancelling = false
	s.lastError = ""
	snap := s.commitLocked()
	s.mu.Unlock()

	if inflight {
		s.client.Cancel()
	}
	s.client.Reset()
	if s.hooks.OnConversationReset != nil {
		s.hooks.OnConversationReset()
	}
	s.publish(snap)
}

// =============================================================================
// EVENTS
// =============================================================================

// Run applies events from the client until ctx is done or the channel closes.
func (s *Store) Run(ctx context.Context) error {
	events := s.client.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.HandleEvent(ev)
		}
	}
}

// HandleEvent applies one service event. Events that do not fit the current
// state are dropped and logged, never surfaced.
func (s *Store) HandleEvent(ev answer.Event) {
	s.mu.Lock()
	e, reason := s.applyLocked(ev)
	if reason != "" {
		s.mu.Unlock()
		s.log.Debug().
			Str("event", ev.Kind.String()).
			Str("id", ev.ID).
			Str("request_id", ev.RequestID).
			Str("reason", reason).
			Msg("dropping answer event")
		if s.hooks.OnEventDropped != nil {
			s.hooks.OnEventDropped(ev, reason)
		}
		return
	}
	done := e.snapshot()
	snap := s.commitLocked()
	s.mu.Unlock()

	switch ev.Kind {
	case answer.EventCompleted:
		if s.hooks.OnAnswerCompleted != nil {
			s.hooks.OnAnswerCompleted(done)
		}
	case answer.EventFailed, answer.EventCancelled:
		if s.hooks.OnAnswerFailed != nil {
			s.hooks.OnAnswerFailed(done)
		}
	}
	s.publish(snap)
}

// applyLocked mutates state for ev and returns the affected entry, or a drop reason.
func (s *Store) applyLocked(ev answer.Event) (*entry, string) {
	switch ev.Kind {
	case answer.EventStarted:
		e := s.pendingLocked(ev.RequestID)
		if e == nil {
			return nil, DropNoPending
		}
		if ev.ID == "" {
			return nil, DropMissingID
		}
		e.ID = ev.ID
		e.Status = StatusStreaming
		s.state = GenerationGenerating
		return e, ""

	case answer.EventChunk:
		e := s.findLocked(ev)
		if e == nil {
			return nil, DropUnknownID
		}
		switch e.Status {
		case StatusPending:
			return nil, DropNotStarted
		case StatusComplete, StatusErrored:
			return nil, DropAfterTerminal
		}
		e.buf.WriteString(ev.Delta)
		return e, ""

	case answer.EventCompleted, answer.EventFailed, answer.EventCancelled:
		e := s.findLocked(ev)
		if e == nil {
			return nil, DropUnknownID
		}
		if e.Status.Terminal() {
			return nil, DropAfterTerminal
		}
		if e.ID == "" {
			e.ID = ev.ID
		}
		s.finishLocked(e, ev)
		return e, ""
	}
	return nil, DropUnknownKind
}

func (s *Store) finishLocked(e *entry, ev answer.Event) {
	switch ev.Kind {
	case answer.EventCompleted:
		e.buf.Reset()
		e.buf.WriteString(ev.Answer)
		e.Sources = append([]answer.Source(nil), ev.Sources...)
		e.Status = StatusComplete
		e.FeedbackEnabled = true
		s.lastError = ""
	case answer.EventFailed:
		msg := ev.Message
		if msg == "" {
			msg = "answer generation failed"
		}
		e.Status = StatusErrored
		e.ErrorMessage = msg
		s.lastError = msg
	case answer.EventCancelled:
		e.Status = StatusErrored
		e.Cancelled = true
		e.ErrorMessage = "generation cancelled"
	}
	s.state = GenerationIdle
	s.cancelling = false
}

// pendingLocked returns the pending entry a started event belongs to.
func (s *Store) pendingLocked(requestID string) *entry {
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.Status != StatusPending {
			continue
		}
		if requestID == "" || e.LocalID == requestID {
			return e
		}
	}
	return nil
}

// findLocked matches an event to an entry by service ID, falling back to the
// request ID for entries the service has not acknowledged yet.
func (s *Store) findLocked(ev answer.Event) *entry {
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if ev.ID != "" && e.ID == ev.ID {
			return e
		}
		if e.ID == "" && ev.RequestID != "" && e.LocalID == ev.RequestID {
			return e
		}
	}
	return nil
}

// =============================================================================
// QUERIES & SUBSCRIPTIONS
// =============================================================================

// Snapshot returns a copy of the current conversation.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// FeedbackEnabled reports whether the entry with service ID id accepts feedback.
func (s *Store) FeedbackEnabled(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e.FeedbackEnabled
		}
	}
	return false
}

// Subscribe registers fn to receive a snapshot after every change. Snapshots
// may arrive out of order from concurrent changes; use Version to discard stale ones.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) commitLocked() Snapshot {
	s.version++
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	entries := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		entries[i] = e.snapshot()
	}
	return Snapshot{
		Version:         s.version,
		Entries:         entries,
		GenerationState: s.state,
		LastError:       s.lastError,
		Cancelling:      s.cancelling,
	}
}

func (s *Store) publish(snap Snapshot) {
	s.mu.Lock()
	subs := append([]subscriber(nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
}

// normalizeQuery trims and NFC-normalizes user input.
func normalizeQuery(text string) string {
	return strings.TrimSpace(norm.NFC.String(text))
}

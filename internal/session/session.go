// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/askthread/internal/answer"
	"github.com/jeranaias/askthread/internal/conversation"
	"github.com/jeranaias/askthread/internal/feedback"
)

// Options configures a Session. The zero value is usable.
type Options struct {
	Logger zerolog.Logger

	// ConfirmDelay is how long a submitted comment form stays open.
	ConfirmDelay time.Duration
	// Scheduler overrides the timer used for auto-closing comment forms.
	Scheduler feedback.Scheduler

	StoreHooks    conversation.Hooks
	FeedbackHooks feedback.Hooks
}

// View is what a presentation layer renders.
type View struct {
	Conversation conversation.Snapshot
	Feedback     feedback.State
}

// Session is one conversation with its feedback, bound to a single client.
type Session struct {
	id        string
	startTime time.Time
	store     *conversation.Store
	feedback  *feedback.Manager
	log       zerolog.Logger

	mu           sync.Mutex
	lastActivity time.Time
}

// New creates a Session that talks to client.
func New(client answer.Client, opts Options) *Session {
	id := uuid.NewString()
	log := opts.Logger.With().Str("session", id).Logger()

	store := conversation.NewStore(client,
		conversation.WithLogger(log),
		conversation.WithHooks(opts.StoreHooks),
	)

	fbOpts := []feedback.Option{
		feedback.WithLogger(log),
		feedback.WithHooks(opts.FeedbackHooks),
		feedback.WithConfirmDelay(opts.ConfirmDelay),
	}
	if opts.Scheduler != nil {
		fbOpts = append(fbOpts, feedback.WithScheduler(opts.Scheduler))
	}

	now := time.Now()
	return &Session{
		id:           id,
		startTime:    now,
		lastActivity: now,
		store:        store,
		feedback:     feedback.NewManager(client, store, fbOpts...),
		log:          log,
	}
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// StartTime returns when the session was created.
func (s *Session) StartTime() time.Time {
	return s.startTime
}

// IdleTime returns how long since the last user intent.
func (s *Session) IdleTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// =============================================================================
// INTENTS
// =============================================================================

// SubmitQuery asks a new question.
func (s *Session) SubmitQuery(text string) error {
	s.touch()
	return s.store.SubmitQuery(text)
}

// CancelGeneration stops the answer being generated.
func (s *Session) CancelGeneration() error {
	s.touch()
	return s.store.CancelGeneration()
}

// ResetConversation clears all entries and feedback, cancelling anything in flight.
func (s *Session) ResetConversation() {
	s.touch()
	s.store.Reset()
	s.feedback.Reset()
	s.log.Info().Msg("conversation reset")
}

// RecordReaction up- or downvotes a completed answer.
func (s *Session) RecordReaction(entryID string, reaction answer.Reaction) error {
	s.touch()
	return s.feedback.RecordReaction(entryID, reaction)
}

// OpenCommentForm opens the detailed feedback form for entryID.
func (s *Session) OpenCommentForm(entryID string) error {
	s.touch()
	return s.feedback.OpenCommentForm(entryID)
}

// CloseCommentForm closes the open feedback form.
func (s *Session) CloseCommentForm() {
	s.touch()
	s.feedback.CloseCommentForm()
}

// UpdateDraft edits the open feedback form.
func (s *Session) UpdateDraft(entryID string, draft feedback.Draft) error {
	s.touch()
	return s.feedback.UpdateDraft(entryID, draft)
}

// SubmitDetailedFeedback sends the open form's comment.
func (s *Session) SubmitDetailedFeedback(entryID string, draft feedback.Draft) error {
	s.touch()
	return s.feedback.SubmitDetailedFeedback(entryID, draft)
}

// =============================================================================
// QUERIES
// =============================================================================

// Snapshot returns the current conversation.
func (s *Session) Snapshot() conversation.Snapshot {
	return s.store.Snapshot()
}

// Feedback returns the feedback record for entryID.
func (s *Session) Feedback(entryID string) feedback.Record {
	return s.feedback.State().Record(entryID)
}

// OpenCommentID returns the entry whose comment form is open, or "".
func (s *Session) OpenCommentID() string {
	return s.feedback.OpenCommentID()
}

// View returns the current conversation and feedback state together.
func (s *Session) View() View {
	return View{Conversation: s.store.Snapshot(), Feedback: s.feedback.State()}
}

// Subscribe calls fn after every change to the conversation or the feedback.
func (s *Session) Subscribe(fn func(View)) (unsubscribe func()) {
	unsubStore := s.store.Subscribe(func(snap conversation.Snapshot) {
		fn(View{Conversation: snap, Feedback: s.feedback.State()})
	})
	unsubFeedback := s.feedback.Subscribe(func(state feedback.State) {
		fn(View{Conversation: s.store.Snapshot(), Feedback: state})
	})
	return func() {
		unsubStore()
		unsubFeedback()
	}
}

// Run applies service events until ctx is done or the client closes its events.
func (s *Session) Run(ctx context.Context) error {
	s.log.Debug().Msg("session event loop started")
	defer s.log.Debug().Msg("session event loop stopped")
	return s.store.Run(ctx)
}

// Wait blocks until every feedback delivery started so far has finished.
func (s *Session) Wait() {
	s.feedback.Wait()
}

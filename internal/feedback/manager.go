// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package feedback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/askthread/internal/answer"
)

// DefaultConfirmDelay is how long the thank-you state stays visible before
// the comment form closes itself.
const DefaultConfirmDelay = 1500 * time.Millisecond

var (
	// ErrFeedbackDisabled is returned for entries whose answer is not complete.
	ErrFeedbackDisabled = errors.New("feedback is not available for this entry")

	// ErrCommentFormClosed is returned when the comment form is not open for the entry.
	ErrCommentFormClosed = errors.New("comment form is not open for this entry")

	// ErrSubmissionInFlight is returned when a detailed submission is already being sent.
	ErrSubmissionInFlight = errors.New("feedback submission already in progress")

	// ErrAlreadySubmitted is returned when the open form has already been submitted.
	ErrAlreadySubmitted = errors.New("feedback already submitted")
)

// EntryLookup answers whether an entry currently accepts feedback.
type EntryLookup interface {
	FeedbackEnabled(id string) bool
}

// Scheduler runs fn once after d. The returned stop function cancels the
// call if it has not run yet.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// Hooks are optional callbacks for telemetry. OnReaction and OnFeedbackResult
// run on the goroutine that delivered the feedback.
type Hooks struct {
	OnReaction       func(entryID string, reaction answer.Reaction, err error)
	OnFeedbackSubmit func(entryID string, draft Draft)
	OnFeedbackResult func(entryID string, err error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for delivery failures.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log.With().Str("component", "feedback").Logger() }
}

// WithHooks installs telemetry callbacks.
func WithHooks(h Hooks) Option {
	return func(m *Manager) { m.hooks = h }
}

// WithScheduler replaces the timer used for auto-closing the comment form.
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) { m.sched = s }
}

// WithConfirmDelay sets how long a submitted form stays open.
func WithConfirmDelay(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.delay = d
		}
	}
}

// WithContext sets the context passed to SendFeedback.
func WithContext(ctx context.Context) Option {
	return func(m *Manager) { m.ctx = ctx }
}

type subscriber struct {
	id int
	fn func(State)
}

// Manager owns the feedback records of a conversation and the single open
// comment form. It is safe for concurrent use.
type Manager struct {
	sender  answer.FeedbackSender
	entries EntryLookup
	sched   Scheduler
	delay   time.Duration
	log     zerolog.Logger
	hooks   Hooks
	ctx     context.Context
	wg      sync.WaitGroup

	mu        sync.Mutex
	records   map[string]*record
	openID    string
	stopClose func() bool
	epoch     uint64
	version   uint64
	subs      []subscriber
	nextSub   int
}

// NewManager creates a Manager that delivers feedback through sender and
// checks entry eligibility against entries.
func NewManager(sender answer.FeedbackSender, entries EntryLookup, opts ...Option) *Manager {
	m := &Manager{
		sender:  sender,
		entries: entries,
		sched:   timeScheduler{},
		delay:   DefaultConfirmDelay,
		log:     zerolog.Nop(),
		ctx:     context.Background(),
		records: make(map[string]*record),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// =============================================================================
// REACTIONS
// =============================================================================

// RecordReaction stores reaction for the entry and forwards it to the service
// without waiting. A downvote opens the entry's comment form; an upvote closes it.
// Delivery failures are logged and never roll back the local reaction.
func (m *Manager) RecordReaction(entryID string, reaction answer.Reaction) error {
	if !reaction.Valid() {
		return answer.ErrInvalidReaction
	}
	if !m.entries.FeedbackEnabled(entryID) {
		return ErrFeedbackDisabled
	}

	m.mu.Lock()
	rec := m.recordLocked(entryID)
	rec.Reaction = reaction
	switch reaction {
	case answer.ReactionDownvote:
		if m.openID != entryID {
			m.openLocked(entryID)
		}
	case answer.ReactionUpvote:
		if m.openID == entryID {
			m.closeLocked()
		}
	}
	state := m.commitLocked()
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		err := m.sender.SendFeedback(m.ctx, entryID, reaction, nil)
		if err != nil {
			m.log.Warn().Err(err).Str("id", entryID).Str("reaction", string(reaction)).Msg("reaction not delivered")
		}
		if m.hooks.OnReaction != nil {
			m.hooks.OnReaction(entryID, reaction, err)
		}
	}()

	m.publish(state)
	return nil
}

// =============================================================================
// COMMENT FORM
// =============================================================================

// OpenCommentForm opens the form for entryID with an empty draft, closing and
// discarding any other open form.
func (m *Manager) OpenCommentForm(entryID string) error {
	if !m.entries.FeedbackEnabled(entryID) {
		return ErrFeedbackDisabled
	}

	m.mu.Lock()
	if m.openID == entryID {
		m.mu.Unlock()
		return nil
	}
	m.openLocked(entryID)
	state := m.commitLocked()
	m.mu.Unlock()

	m.publish(state)
	return nil
}

// CloseCommentForm closes the open form, if any, and discards its draft.
func (m *Manager) CloseCommentForm() {
	m.mu.Lock()
	if m.openID == "" {
		m.mu.Unlock()
		return
	}
	m.closeLocked()
	state := m.commitLocked()
	m.mu.Unlock()

	m.publish(state)
}

// UpdateDraft replaces the draft of the open form. The form is read-only while
// a submission is in flight or after it succeeded.
func (m *Manager) UpdateDraft(entryID string, draft Draft) error {
	m.mu.Lock()
	rec, err := m.editableLocked(entryID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	rec.CommentDraft = &draft
	state := m.commitLocked()
	m.mu.Unlock()

	m.publish(state)
	return nil
}

// SubmitDetailedFeedback sends a downvote with draft for the entry whose form
// is open. It returns once the submission is started; the outcome is observed
// through the record's SubmissionState. Retrying is allowed after a failure.
func (m *Manager) SubmitDetailedFeedback(entryID string, draft Draft) error {
	m.mu.Lock()
	rec, err := m.editableLocked(entryID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	rec.Reaction = answer.ReactionDownvote
	rec.CommentDraft = &draft
	rec.SubmissionState = SubmissionSubmitting
	rec.ErrorMessage = ""
	rec.attempt++
	epoch, attempt := m.epoch, rec.attempt
	state := m.commitLocked()
	m.mu.Unlock()

	if m.hooks.OnFeedbackSubmit != nil {
		m.hooks.OnFeedbackSubmit(entryID, draft)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		detail := draft
		err := m.sender.SendFeedback(m.ctx, entryID, answer.ReactionDownvote, &detail)
		if m.hooks.OnFeedbackResult != nil {
			m.hooks.OnFeedbackResult(entryID, err)
		}
		m.finishSubmit(entryID, epoch, attempt, err)
	}()

	m.publish(state)
	return nil
}

func (m *Manager) finishSubmit(entryID string, epoch uint64, attempt int, err error) {
	m.mu.Lock()
	rec, ok := m.records[entryID]
	if epoch != m.epoch || !ok || rec.attempt != attempt || rec.SubmissionState != SubmissionSubmitting {
		m.mu.Unlock()
		m.log.Debug().Str("id", entryID).Msg("discarding stale feedback result")
		return
	}

	if err != nil {
		rec.SubmissionState = SubmissionFailed
		rec.ErrorMessage = err.Error()
		m.log.Warn().Err(err).Str("id", entryID).Msg("detailed feedback rejected")
	} else {
		rec.SubmissionState = SubmissionSubmitted
		if m.openID == entryID {
			m.scheduleCloseLocked(entryID, epoch, attempt)
		}
	}
	state := m.commitLocked()
	m.mu.Unlock()

	m.publish(state)
}

func (m *Manager) scheduleCloseLocked(entryID string, epoch uint64, attempt int) {
	m.cancelCloseLocked()
	m.stopClose = m.sched.AfterFunc(m.delay, func() {
		m.mu.Lock()
		rec, ok := m.records[entryID]
		if epoch != m.epoch || m.openID != entryID || !ok || rec.attempt != attempt {
			m.mu.Unlock()
			return
		}
		m.stopClose = nil
		m.closeLocked()
		state := m.commitLocked()
		m.mu.Unlock()

		m.publish(state)
	})
}

// Reset drops every record, closes the form and cancels a pending auto-close.
// Results of submissions started before the reset are discarded.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.cancelCloseLocked()
	m.records = make(map[string]*record)
	m.openID = ""
	m.epoch++
	state := m.commitLocked()
	m.mu.Unlock()

	m.publish(state)
}

// Wait blocks until every reaction and submission sent so far has been delivered.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// =============================================================================
// LOCKED HELPERS
// =============================================================================

func (m *Manager) recordLocked(entryID string) *record {
	rec, ok := m.records[entryID]
	if !ok {
		rec = &record{Record: Record{EntryID: entryID}}
		m.records[entryID] = rec
	}
	return rec
}

func (m *Manager) openLocked(entryID string) {
	if m.openID != "" {
		m.closeLocked()
	}
	rec := m.recordLocked(entryID)
	rec.CommentDraft = &Draft{}
	rec.SubmissionState = SubmissionIdle
	rec.ErrorMessage = ""
	m.openID = entryID
}

func (m *Manager) closeLocked() {
	m.cancelCloseLocked()
	if rec, ok := m.records[m.openID]; ok {
		rec.CommentDraft = nil
	}
	m.openID = ""
}

func (m *Manager) cancelCloseLocked() {
	if m.stopClose != nil {
		m.stopClose()
		m.stopClose = nil
	}
}

func (m *Manager) editableLocked(entryID string) (*record, error) {
	if m.openID != entryID || entryID == "" {
		return nil, ErrCommentFormClosed
	}
	rec := m.recordLocked(entryID)
	switch rec.SubmissionState {
	case SubmissionSubmitting:
		return nil, ErrSubmissionInFlight
	case SubmissionSubmitted:
		return nil, ErrAlreadySubmitted
	}
	return rec, nil
}

// =============================================================================
// QUERIES & SUBSCRIPTIONS
// =============================================================================

// Record returns the feedback record for entryID.
func (m *Manager) Record(entryID string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[entryID]
	if !ok {
		return Record{}, false
	}
	return rec.snapshot(), true
}

// OpenCommentID returns the entry whose comment form is open, or "".
func (m *Manager) OpenCommentID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openID
}

// State returns a copy of all feedback state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Subscribe registers fn to receive the state after every change.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, sub := range m.subs {
			if sub.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) commitLocked() State {
	m.version++
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	records := make(map[string]Record, len(m.records))
	for id, rec := range m.records {
		records[id] = rec.snapshot()
	}
	return State{Version: m.version, OpenCommentID: m.openID, Records: records}
}

func (m *Manager) publish(state State) {
	m.mu.Lock()
	subs := append([]subscriber(nil), m.subs...)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.fn(state)
	}
}

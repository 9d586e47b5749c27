// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package feedback

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/askthread/internal/answer"
	"github.com/jeranaias/askthread/internal/answer/answertest"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type enabledSet map[string]bool

func (e enabledSet) FeedbackEnabled(id string) bool { return e[id] }

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{delay: d, fn: fn}
	s.timers = append(s.timers, t)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.stopped || t.fired {
			return false
		}
		t.stopped = true
		return true
	}
}

// fire runs every timer that is neither stopped nor fired and returns how many ran.
func (s *fakeScheduler) fire() int {
	s.mu.Lock()
	var due []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
	return len(due)
}

func (s *fakeScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *answertest.Client, *fakeScheduler) {
	t.Helper()
	client := answertest.New()
	sched := &fakeScheduler{}
	opts = append([]Option{WithScheduler(sched)}, opts...)
	m := NewManager(client, enabledSet{"1": true, "2": true}, opts...)
	return m, client, sched
}

var wrongDate = Draft{Incorrect: true, Note: "wrong date"}

// =============================================================================
// REACTION TESTS
// =============================================================================

func TestManager_RecordReaction(t *testing.T) {
	m, client, _ := newTestManager(t)

	require.NoError(t, m.RecordReaction("1", answer.ReactionUpvote))
	m.Wait()

	rec, ok := m.Record("1")
	require.True(t, ok)
	assert.Equal(t, answer.ReactionUpvote, rec.Reaction)
	assert.False(t, rec.FormOpen())
	assert.Empty(t, m.OpenCommentID())

	calls := client.FeedbackCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "1", calls[0].ID)
	assert.Equal(t, answer.ReactionUpvote, calls[0].Reaction)
	assert.Nil(t, calls[0].Detail)
}

func TestManager_RecordReactionValidation(t *testing.T) {
	m, client, _ := newTestManager(t)

	err := m.RecordReaction("1", answer.ReactionNone)
	assert.ErrorIs(t, err, answer.ErrInvalidReaction)
	assert.True(t, answer.IsValidation(err))

	assert.ErrorIs(t, m.RecordReaction("1", "meh"), answer.ErrInvalidReaction)
	assert.ErrorIs(t, m.RecordReaction("3", answer.ReactionUpvote), ErrFeedbackDisabled)

	m.Wait()
	assert.Empty(t, client.FeedbackCalls())
	assert.Equal(t, uint64(0), m.State().Version)
}

func TestManager_DownvoteOpensForm(t *testing.T) {
	m, _, _ := newTestManager(t)

	require.NoError(t, m.RecordReaction("1", answer.ReactionDownvote))

	assert.Equal(t, "1", m.OpenCommentID())
	rec, _ := m.Record("1")
	assert.Equal(t, answer.ReactionDownvote, rec.Reaction)
	require.NotNil(t, rec.CommentDraft)
	assert.True(t, rec.CommentDraft.Empty())
	assert.Equal(t, SubmissionIdle, rec.SubmissionState)
}

func TestManager_DownvoteThenUpvote(t *testing.T) {
	m, client, _ := newTestManager(t)

	require.NoError(t, m.RecordReaction("1", answer.ReactionDownvote))
	require.NoError(t, m.RecordReaction("1", answer.ReactionUpvote))
	m.Wait()

	assert.Empty(t, m.OpenCommentID())
	rec, _ := m.Record("1")
	assert.Equal(t, answer.ReactionUpvote, rec.Reaction)
	assert.Nil(t, rec.CommentDraft)
	assert.Len(t, client.FeedbackCalls(), 2)
}

func TestManager_UpvoteLeavesOtherFormOpen(t *testing.T) {
	m, _, _ := newTestManager(t)

	require.NoError(t, m.RecordReaction("1", answer.ReactionDownvote))
	require.NoError(t, m.RecordReaction("2", answer.ReactionUpvote))

	assert.Equal(t, "1", m.OpenCommentID())
}

func TestManager_RepeatedDownvoteKeepsDraft(t *testing.T) {
	m, _, _ := newTestManager(t)

	require.NoError(t, m.RecordReaction("1", answer.ReactionDownvote))
	require.NoError(t, m.UpdateDraft("1", wrongDate))
	require.NoError(t, m.RecordReaction("1", answer.ReactionDownvote))

	rec, _ := m.Record("1")
	assert.Equal(t, wrongDate, *rec.CommentDraft)
}

func TestManager_ReactionFailureKeepsLocalState(t *testing.T) {
	var mu sync.Mutex
	var results []error
	m, client, _ := newTestManager(t, WithHooks(Hooks{
		OnReaction: func(_ string, _ answer.Reaction, err error) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, err)
		},
	}))
	client.FailFeedback(errors.New("unreachable"))

	require.NoError(t, m.RecordReaction("1", answer.ReactionUpvote))
	m.Wait()

	rec, _ := m.Record("1")
	assert.Equal(t, answer.ReactionUpvote, rec.Reaction)
	assert.Equal(t, SubmissionIdle, rec.SubmissionState)
	assert.Empty(t, rec.ErrorMessage)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 1)
	assert.EqualError(t, results[0], "unreachable")
}

func TestManager_ReactionDoesNotBlock(t *testing.T) {
	m, client, _ := newTestManager(t)
	release := client.HoldFeedback()
	defer release()

	done := make(chan struct{})
	go func() {
		_ = m.RecordReaction("1", answer.ReactionUpvote)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RecordReaction blocked on delivery")
	}
}

// =============================================================================
// COMMENT FORM TESTS
// =============================================================================

func TestManager_SingletonCommentForm(t *testing.T) {
	m, _, _ := newTestManager(t)

	require.NoError(t, m.OpenCommentForm("1"))
	require.NoError(t, m.UpdateDraft("1", wrongDate))
	require.NoError(t, m.OpenCommentForm("2"))

	assert.Equal(t, "2", m.OpenCommentID())
	rec1, _ := m.Record("1")
	assert.Nil(t, rec1.CommentDraft, "draft of the closed form is discarded")

	open := 0
	for _, rec := range m.State().Records {
		if rec.FormOpen() {
			open++
		}
	}
	assert.Equal(t, 1, open)

	require.NoError(t, m.OpenCommentForm("1"))
	rec1, _ = m.Record("1")
	require.NotNil(t, rec1.CommentDraft)
	assert.True(t, rec1.CommentDraft.Empty())
}

func TestManager_OpenCommentFormRequiresEnabledEntry(t *testing.T) {
	m, _, _ := newTestManager(t)
	assert.ErrorIs(t, m.OpenCommentForm("3"), ErrFeedbackDisabled)
	assert.Empty(t, m.OpenCommentID())
}

func TestManager_CloseCommentForm(t *testing.T) {
	m, _, _ := newTestManager(t)

	m.CloseCommentForm()
	assert.Equal(t, uint64(0), m.State().Version, "closing with nothing open is a no-op")

	require.NoError(t, m.OpenCommentForm("1"))
	m.CloseCommentForm()
	assert.Empty(t, m.OpenCommentID())
	assert.ErrorIs(t, m.UpdateDraft("1", wrongDate), ErrCommentFormClosed)
	assert.ErrorIs(t, m.SubmitDetailedFeedback("1", wrongDate), ErrCommentFormClosed)
}

// =============================================================================
// DETAILED FEEDBACK TESTS
// =============================================================================

func TestManager_SubmitDetailedFeedback(t *testing.T) {
	m, client, sched := newTestManager(t)

	require.NoError(t, m.RecordReaction("1", answer.ReactionDownvote))
	require.NoError(t, m.SubmitDetailedFeedback("1", wrongDate))
	m.Wait()

	rec, _ := m.Record("1")
	assert.Equal(t, SubmissionSubmitted, rec.SubmissionState)
	assert.Equal(t, "1", m.OpenCommentID(), "form shows the thank-you state until the delay elapses")
	assert.Equal(t, wrongDate, *rec.CommentDraft)

	calls := client.FeedbackCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, answer.ReactionDownvote, calls[1].Reaction)
	require.NotNil(t, calls[1].Detail)
	assert.Equal(t, wrongDate, *calls[1].Detail)

	require.Len(t, sched.timers, 1)
	assert.Equal(t, DefaultConfirmDelay, sched.timers[0].delay)
	assert.Equal(t, 1, sched.fire())

	assert.Empty(t, m.OpenCommentID())
	rec, _ = m.Record("1")
	assert.Equal(t, SubmissionSubmitted, rec.SubmissionState)
	assert.Nil(t, rec.CommentDraft)
}

func TestManager_SubmitDetailedFeedbackFailureAndRetry(t *testing.T) {
	m, client, sched := newTestManager(t)
	require.NoError(t, m.OpenCommentForm("1"))
	client.FailFeedback(errors.New("service rejected feedback"))

	require.NoError(t, m.SubmitDetailedFeedback("1", wrongDate))
	m.Wait()

	rec, _ := m.Record("1")
	assert.Equal(t, SubmissionFailed, rec.SubmissionState)
	assert.Equal(t, "service rejected feedback", rec.ErrorMessage)
	assert.Equal(t, "1", m.OpenCommentID())
	assert.Zero(t, sched.pending())

	client.FailFeedback(nil)
	release := client.HoldFeedback()
	require.NoError(t, m.SubmitDetailedFeedback("1", wrongDate))

	rec, _ = m.Record("1")
	assert.Equal(t, SubmissionSubmitting, rec.SubmissionState)
	assert.Empty(t, rec.ErrorMessage)

	release()
	m.Wait()
	rec, _ = m.Record("1")
	assert.Equal(t, SubmissionSubmitted, rec.SubmissionState)
}

func TestManager_SubmitGuards(t *testing.T) {
	m, client, _ := newTestManager(t)
	require.NoError(t, m.OpenCommentForm("1"))

	assert.ErrorIs(t, m.SubmitDetailedFeedback("2", wrongDate), ErrCommentFormClosed)

	release := client.HoldFeedback()
	require.NoError(t, m.SubmitDetailedFeedback("1", wrongDate))
	assert.ErrorIs(t, m.SubmitDetailedFeedback("1", wrongDate), ErrSubmissionInFlight)
	assert.ErrorIs(t, m.UpdateDraft("1", Draft{}), ErrSubmissionInFlight)

	release()
	m.Wait()
	assert.ErrorIs(t, m.SubmitDetailedFeedback("1", wrongDate), ErrAlreadySubmitted)
	assert.ErrorIs(t, m.UpdateDraft("1", Draft{}), ErrAlreadySubmitted)
	assert.Len(t, client.FeedbackCalls(), 1)
}

func TestManager_CloseDuringSubmission(t *testing.T) {
	m, client, sched := newTestManager(t)
	require.NoError(t, m.OpenCommentForm("1"))

	release := client.HoldFeedback()
	require.NoError(t, m.SubmitDetailedFeedback("1", wrongDate))
	m.CloseCommentForm()
	release()
	m.Wait()

	rec, _ := m.Record("1")
	assert.Equal(t, SubmissionSubmitted, rec.SubmissionState)
	assert.Empty(t, m.OpenCommentID())
	assert.Zero(t, sched.pending(), "no auto-close for a form that is already closed")
}

func TestManager_SwitchingFormsCancelsAutoClose(t *testing.T) {
	m, _, sched := newTestManager(t)
	require.NoError(t, m.OpenCommentForm("1"))
	require.NoError(t, m.SubmitDetailedFeedback("1", wrongDate))
	m.Wait()
	require.Equal(t, 1, sched.pending())

	require.NoError(t, m.OpenCommentForm("2"))
	assert.Zero(t, sched.pending())
	assert.Equal(t, "2", m.OpenCommentID())
}

// =============================================================================
// RESET TESTS
// =============================================================================

func TestManager_Reset(t *testing.T) {
	m, _, sched := newTestManager(t)
	require.NoError(t, m.RecordReaction("2", answer.ReactionUpvote))
	require.NoError(t, m.OpenCommentForm("1"))
	require.NoError(t, m.SubmitDetailedFeedback("1", wrongDate))
	m.Wait()
	require.Equal(t, 1, sched.pending())

	m.Reset()

	state := m.State()
	assert.Empty(t, state.Records)
	assert.Empty(t, state.OpenCommentID)
	assert.Zero(t, sched.pending(), "reset cancels the pending auto-close")
}

func TestManager_ResultAfterResetIgnored(t *testing.T) {
	m, client, sched := newTestManager(t)
	require.NoError(t, m.OpenCommentForm("1"))

	release := client.HoldFeedback()
	require.NoError(t, m.SubmitDetailedFeedback("1", wrongDate))
	m.Reset()
	release()
	m.Wait()

	_, ok := m.Record("1")
	assert.False(t, ok)
	assert.Empty(t, m.OpenCommentID())
	assert.Zero(t, sched.pending())
}

// =============================================================================
// SUBSCRIPTION TESTS
// =============================================================================

func TestManager_Subscribe(t *testing.T) {
	m, _, _ := newTestManager(t)

	var mu sync.Mutex
	var versions []uint64
	unsubscribe := m.Subscribe(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		versions = append(versions, s.Version)
	})

	require.NoError(t, m.OpenCommentForm("1"))
	require.NoError(t, m.UpdateDraft("1", wrongDate))
	m.CloseCommentForm()
	unsubscribe()
	require.NoError(t, m.OpenCommentForm("2"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{1, 2, 3}, versions)
}

func TestState_Record(t *testing.T) {
	s := State{Records: map[string]Record{"1": {EntryID: "1", Reaction: answer.ReactionUpvote}}}
	assert.Equal(t, answer.ReactionUpvote, s.Record("1").Reaction)
	assert.Equal(t, Record{EntryID: "9"}, s.Record("9"))
}

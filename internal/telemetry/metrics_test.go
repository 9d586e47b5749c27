// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/askthread/internal/answer"
	"github.com/jeranaias/askthread/internal/conversation"
)

func TestMetrics_StoreHooks(t *testing.T) {
	m := New()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base.Add(2 * time.Second) }

	hooks := m.StoreHooks()
	hooks.OnQuerySubmit("q1")
	hooks.OnQuerySubmit("q2")
	hooks.OnQuerySubmit("q3")
	hooks.OnAnswerCompleted(conversation.Entry{CreatedAt: base})
	hooks.OnAnswerFailed(conversation.Entry{ErrorMessage: "boom"})
	hooks.OnAnswerFailed(conversation.Entry{Cancelled: true})
	hooks.OnEventDropped(answer.Chunk("r", "qa-1", "x"), conversation.DropAfterTerminal)
	hooks.OnConversationReset()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.questions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.answers.WithLabelValues(OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.answers.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.answers.WithLabelValues(OutcomeCancelled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("chunk", conversation.DropAfterTerminal)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resets))

	stats := m.Stats()
	assert.Equal(t, 3, stats.Questions)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Cancelled)
	assert.Equal(t, 1, stats.DroppedEvents)
	assert.Equal(t, 2*time.Second, stats.AverageLatency())
	assert.Contains(t, stats.String(), "Questions: 3 (1 answered, 1 failed, 1 cancelled)")
}

func TestMetrics_FeedbackHooks(t *testing.T) {
	m := New()
	hooks := m.FeedbackHooks()

	hooks.OnReaction("1", answer.ReactionUpvote, nil)
	hooks.OnReaction("2", answer.ReactionDownvote, errors.New("unreachable"))
	hooks.OnFeedbackResult("2", errors.New("rejected"))
	hooks.OnFeedbackResult("2", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.reactions.WithLabelValues("upvote", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reactions.WithLabelValues("downvote", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.comments.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.comments.WithLabelValues("ok")))

	stats := m.Stats()
	assert.Equal(t, 1, stats.Upvotes)
	assert.Equal(t, 1, stats.Downvotes)
	assert.Equal(t, 1, stats.Comments)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.StoreHooks().OnQuerySubmit("q")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "askthread_questions_total 1")

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestStats_AverageLatencyWithoutAnswers(t *testing.T) {
	assert.Zero(t, Stats{}.AverageLatency())
	assert.NotContains(t, Stats{StartTime: time.Now()}.String(), "Average")
}

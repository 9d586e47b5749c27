// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jeranaias/askthread/internal/answer"
	"github.com/jeranaias/askthread/internal/conversation"
	"github.com/jeranaias/askthread/internal/feedback"
)

const namespace = "askthread"

// Answer outcomes used as label values.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// =============================================================================
// SESSION STATS
// =============================================================================

// Stats summarises activity since the Metrics were created.
type Stats struct {
	StartTime      time.Time     `json:"start_time"`
	Questions      int           `json:"questions"`
	Completed      int           `json:"completed"`
	Failed         int           `json:"failed"`
	Cancelled      int           `json:"cancelled"`
	Upvotes        int           `json:"upvotes"`
	Downvotes      int           `json:"downvotes"`
	Comments       int           `json:"comments"`
	DroppedEvents  int           `json:"dropped_events"`
	TotalAnswering time.Duration `json:"total_answering"`
}

// AverageLatency returns the mean time from question to completed answer.
func (s Stats) AverageLatency() time.Duration {
	if s.Completed == 0 {
		return 0
	}
	return s.TotalAnswering / time.Duration(s.Completed)
}

// String formats the stats as a short multi-line summary.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", time.Since(s.StartTime).Round(time.Second))
	fmt.Fprintf(&b, "Questions: %d (%d answered, %d failed, %d cancelled)\n",
		s.Questions, s.Completed, s.Failed, s.Cancelled)
	if s.Completed > 0 {
		fmt.Fprintf(&b, "Average answer time: %s\n", s.AverageLatency().Round(10*time.Millisecond))
	}
	fmt.Fprintf(&b, "Feedback: %d up, %d down, %d comments", s.Upvotes, s.Downvotes, s.Comments)
	return b.String()
}

// =============================================================================
// METRICS
// =============================================================================

// Metrics records conversation and feedback activity.
type Metrics struct {
	registry *prometheus.Registry

	questions     prometheus.Counter
	answers       *prometheus.CounterVec
	answerLatency prometheus.Histogram
	dropped       *prometheus.CounterVec
	reactions     *prometheus.CounterVec
	comments      *prometheus.CounterVec
	resets        prometheus.Counter

	mu    sync.Mutex
	stats Stats
	now   func() time.Time
}

// New creates Metrics backed by a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		questions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions submitted.",
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answers that reached a terminal state, by outcome.",
		}, []string{"outcome"}),
		answerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_duration_seconds",
			Help:      "Time from question to completed answer.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_events_total",
			Help:      "Answer service events ignored because they did not fit the conversation state.",
		}, []string{"event", "reason"}),
		reactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reactions_total",
			Help:      "Reactions sent, by reaction and delivery result.",
		}, []string{"reaction", "result"}),
		comments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comments_total",
			Help:      "Detailed feedback submissions, by delivery result.",
		}, []string{"result"}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_resets_total",
			Help:      "Conversations cleared by the user.",
		}),
		now: time.Now,
	}
	m.stats.StartTime = m.now()

	m.registry.MustRegister(
		m.questions, m.answers, m.answerLatency, m.dropped,
		m.reactions, m.comments, m.resets,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Stats returns a copy of the session summary.
func (m *Metrics) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// StoreHooks returns conversation hooks that feed these metrics.
func (m *Metrics) StoreHooks() conversation.Hooks {
	return conversation.Hooks{
		OnQuerySubmit: func(string) {
			m.questions.Inc()
			m.update(func(s *Stats) { s.Questions++ })
		},
		OnAnswerCompleted: func(e conversation.Entry) {
			elapsed := m.now().Sub(e.CreatedAt)
			m.answers.WithLabelValues(OutcomeCompleted).Inc()
			m.answerLatency.Observe(elapsed.Seconds())
			m.update(func(s *Stats) {
				s.Completed++
				s.TotalAnswering += elapsed
			})
		},
		OnAnswerFailed: func(e conversation.Entry) {
			if e.Cancelled {
				m.answers.WithLabelValues(OutcomeCancelled).Inc()
				m.update(func(s *Stats) { s.Cancelled++ })
				return
			}
			m.answers.WithLabelValues(OutcomeFailed).Inc()
			m.update(func(s *Stats) { s.Failed++ })
		},
		OnConversationReset: func() {
			m.resets.Inc()
		},
		OnEventDropped: func(ev answer.Event, reason string) {
			m.dropped.WithLabelValues(ev.Kind.String(), reason).Inc()
			m.update(func(s *Stats) { s.DroppedEvents++ })
		},
	}
}

// FeedbackHooks returns feedback hooks that feed these metrics.
func (m *Metrics) FeedbackHooks() feedback.Hooks {
	return feedback.Hooks{
		OnReaction: func(_ string, reaction answer.Reaction, err error) {
			m.reactions.WithLabelValues(string(reaction), result(err)).Inc()
			m.update(func(s *Stats) {
				if reaction == answer.ReactionUpvote {
					s.Upvotes++
				} else {
					s.Downvotes++
				}
			})
		},
		OnFeedbackResult: func(_ string, err error) {
			m.comments.WithLabelValues(result(err)).Inc()
			if err == nil {
				m.update(func(s *Stats) { s.Comments++ })
			}
		},
	}
}

func (m *Metrics) update(fn func(*Stats)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.stats)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/askthread/internal/answer"
	"github.com/jeranaias/askthread/internal/answer/answertest"
	"github.com/jeranaias/askthread/internal/feedback"
	"github.com/jeranaias/askthread/internal/session"
	"github.com/jeranaias/askthread/internal/telemetry"
)

// =============================================================================
// HELPERS
// =============================================================================

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// scriptedInput feeds lines sent by the test to the REPL.
type scriptedInput struct {
	lines   chan string
	mu      sync.Mutex
	history []string
}

func (s *scriptedInput) Prompt(string) (string, error) {
	line, ok := <-s.lines
	if !ok {
		return "", io.EOF
	}
	return line, nil
}

func (s *scriptedInput) AppendHistory(item string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, item)
}

type replHarness struct {
	t          *testing.T
	client     *answertest.Client
	sess       *session.Session
	in         *scriptedInput
	out        *syncBuffer
	interrupts chan os.Signal
	exportDir  string
	done       chan error
}

func newSession(t *testing.T) (*answertest.Client, *session.Session) {
	t.Helper()
	client := answertest.New()
	sess := session.New(client, session.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = sess.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return client, sess
}

func startREPL(t *testing.T, stats func() telemetry.Stats) *replHarness {
	t.Helper()
	h := &replHarness{
		t:          t,
		in:         &scriptedInput{lines: make(chan string)},
		out:        &syncBuffer{},
		interrupts: make(chan os.Signal, 1),
		exportDir:  t.TempDir(),
		done:       make(chan error, 1),
	}
	h.client, h.sess = newSession(t)

	repl := NewREPL(h.sess, REPLOptions{
		In:         h.in,
		Out:        h.out,
		ExportDir:  h.exportDir,
		Stats:      stats,
		Interrupts: h.interrupts,
	})
	go func() {
		h.done <- repl.Run(context.Background())
	}()
	return h
}

func (h *replHarness) send(line string) {
	h.t.Helper()
	select {
	case h.in.lines <- line:
	case <-time.After(2 * time.Second):
		h.t.Fatalf("REPL did not prompt for %q", line)
	}
}

func (h *replHarness) waitFor(text string) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return strings.Contains(h.out.String(), text)
	}, 2*time.Second, 5*time.Millisecond, "output never contained %q:\n%s", text, h.out.String())
}

// waitRequest waits for the n-th question to reach the client.
func (h *replHarness) waitRequest(n int) answer.Request {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return len(h.client.Requests()) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return h.client.Requests()[n-1]
}

// answer drives the n-th question to a completed answer.
func (h *replHarness) answer(n int, id, text string) {
	h.t.Helper()
	rid := h.waitRequest(n).RequestID
	h.client.Emit(answer.Started(rid, id))
	h.client.Emit(answer.Chunk(rid, id, text))
	h.client.Emit(answer.Completed(rid, id, text, []answer.Source{
		{Title: "X guide", Subtitle: "Basics", URL: "https://docs.example.com/x"},
	}))
	h.waitFor(fmt.Sprintf("[#%d] Rate this answer", n))
}

func (h *replHarness) quit() {
	h.t.Helper()
	close(h.in.lines)
	select {
	case err := <-h.done:
		require.NoError(h.t, err)
	case <-time.After(2 * time.Second):
		h.t.Fatal("REPL did not exit")
	}
}

// =============================================================================
// QUESTIONS
// =============================================================================

func TestREPL_AskStreamsAnswer(t *testing.T) {
	h := startREPL(t, nil)

	h.send("What is X?")
	h.answer(1, "qa-1", "X is a thing.")

	out := h.out.String()
	assert.Contains(t, out, "X is a thing.")
	assert.Contains(t, out, "X guide (Basics)")
	assert.Contains(t, out, "https://docs.example.com/x")
	assert.Contains(t, out, "[#1]")
	assert.Equal(t, "What is X?", h.client.LastRequest().Question)

	h.quit()
	assert.Equal(t, []string{"What is X?"}, h.in.history)
	assert.Contains(t, h.out.String(), "Goodbye!")
}

func TestREPL_FailedAnswer(t *testing.T) {
	h := startREPL(t, nil)

	h.send("What is X?")
	rid := h.waitRequest(1).RequestID
	h.client.Emit(answer.Failed(rid, "", "service unavailable"))
	h.waitFor("service unavailable")

	// The conversation stays usable.
	h.send("Again?")
	h.answer(2, "qa-2", "Yes.")
	h.quit()
}

func TestREPL_InterruptBeforeStartStopsOnceStarted(t *testing.T) {
	h := startREPL(t, nil)

	h.send("slow question")
	rid := h.waitRequest(1).RequestID

	h.interrupts <- os.Interrupt
	h.waitFor("Stopping once the answer starts")
	assert.Zero(t, h.client.Cancels())

	h.client.Emit(answer.Started(rid, "qa-1"))
	require.Eventually(t, func() bool {
		return h.client.Cancels() == 1
	}, 2*time.Second, 5*time.Millisecond)

	h.client.Emit(answer.Cancelled(rid, "qa-1"))
	h.waitFor("Answer stopped")
	h.quit()
}

func TestREPL_InterruptWhileAnswering(t *testing.T) {
	h := startREPL(t, nil)

	h.send("long question")
	rid := h.waitRequest(1).RequestID
	h.client.Emit(answer.Started(rid, "qa-1"))
	h.client.Emit(answer.Chunk(rid, "qa-1", "partial "))
	h.waitFor("partial")

	h.interrupts <- os.Interrupt
	h.waitFor("[Stopping]")
	assert.Equal(t, 1, h.client.Cancels())

	h.client.Emit(answer.Cancelled(rid, "qa-1"))
	h.waitFor("Answer stopped")
	h.quit()
}

// =============================================================================
// FEEDBACK
// =============================================================================

func TestREPL_Reactions(t *testing.T) {
	h := startREPL(t, nil)

	h.send("/up")
	h.waitFor("no answers yet")

	h.send("one")
	h.answer(1, "qa-1", "first")
	h.send("two")
	h.answer(2, "qa-2", "second")

	h.send("/up 1")
	h.waitFor("Thanks for the feedback")
	h.send("/down")
	h.waitFor("Tell us what went wrong")

	h.sess.Wait()
	assert.Equal(t, answer.ReactionUpvote, h.sess.Feedback("qa-1").Reaction)
	assert.Equal(t, answer.ReactionDownvote, h.sess.Feedback("qa-2").Reaction)
	assert.Equal(t, "qa-2", h.sess.OpenCommentID())

	h.send("/up 7")
	h.waitFor("no answer #7")
	h.quit()
}

func TestREPL_CommentFlow(t *testing.T) {
	h := startREPL(t, nil)
	h.send("What is X?")
	h.answer(1, "qa-1", "X is a thing.")

	h.send("/comment")
	h.send("y")
	h.send("")
	h.send("yes")
	h.send("wrong date")
	h.waitFor("Thanks! Your feedback was sent.")

	var detail *answer.Detail
	for _, call := range h.client.FeedbackCalls() {
		if call.Detail != nil {
			detail = call.Detail
		}
	}
	require.NotNil(t, detail)
	assert.Equal(t, feedback.Draft{Incorrect: true, Unaddressed: true, Note: "wrong date"}, *detail)
	assert.Equal(t, feedback.SubmissionSubmitted, h.sess.Feedback("qa-1").SubmissionState)
	h.quit()
}

func TestREPL_CommentFailureKeepsFormForRetry(t *testing.T) {
	h := startREPL(t, nil)
	h.send("What is X?")
	h.answer(1, "qa-1", "X is a thing.")

	h.client.FailFeedback(errors.New("service rejected feedback"))
	h.send("/comment")
	h.send("y")
	h.send("n")
	h.send("n")
	h.send("")
	h.waitFor("run /comment again to retry")
	assert.Equal(t, "qa-1", h.sess.OpenCommentID())

	h.client.FailFeedback(nil)
	h.send("/comment")
	h.send("")
	h.send("")
	h.send("")
	h.send("")
	h.waitFor("Thanks! Your feedback was sent.")
	h.quit()
}

func TestREPL_CommentBeforeAnswer(t *testing.T) {
	h := startREPL(t, nil)
	h.send("What is X?")
	rid := h.waitRequest(1).RequestID
	h.client.Emit(answer.Failed(rid, "", "boom"))
	h.waitFor("boom")

	h.send("/comment")
	h.waitFor("feedback opens once the answer is complete")
	h.quit()
}

// =============================================================================
// OTHER COMMANDS
// =============================================================================

func TestREPL_ClearExportStats(t *testing.T) {
	stats := func() telemetry.Stats {
		return telemetry.Stats{StartTime: time.Now(), Questions: 2, Completed: 1, Upvotes: 1}
	}
	h := startREPL(t, stats)

	h.send("/export")
	h.waitFor("nothing to export yet")

	h.send("What is X?")
	h.answer(1, "qa-1", "X is a thing.")

	h.send("/export json")
	h.waitFor("Exported to")
	files, err := filepath.Glob(filepath.Join(h.exportDir, "*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "X is a thing.")

	h.send("/export yaml")
	h.waitFor("unknown export format")

	h.send("/stats")
	h.waitFor("Questions: 2 (1 answered")

	h.send("/clear")
	h.waitFor("[Conversation cleared]")
	assert.Empty(t, h.sess.Snapshot().Entries)
	assert.Equal(t, 1, h.client.Resets())

	h.send("/nope")
	h.waitFor("unknown command: /nope")

	h.send("/help")
	h.waitFor("Available Commands")

	h.send("/quit")
	select {
	case err := <-h.done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("REPL did not exit on /quit")
	}
	assert.Contains(t, h.out.String(), "Session Summary")
}

func TestIsYes(t *testing.T) {
	tests := []struct {
		reply   string
		current bool
		want    bool
	}{
		{"y", false, true},
		{"YES", false, true},
		{"n", true, false},
		{"", true, true},
		{"", false, false},
		{"maybe", true, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isYes(tt.reply, tt.current), "reply %q current %v", tt.reply, tt.current)
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/askthread/internal/answer"
	"github.com/jeranaias/askthread/internal/answer/answertest"
)

// runAsk starts Ask in the background and returns its result channel.
func runAsk(ctx context.Context, t *testing.T, format string, out *syncBuffer) (*answertest.Client, chan error) {
	t.Helper()
	client, sess := newSession(t)
	done := make(chan error, 1)
	go func() {
		done <- Ask(ctx, sess, "What is X?", AskOptions{Format: format, Out: out, Profile: termenv.Ascii})
	}()
	require.Eventually(t, func() bool {
		return len(client.Requests()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	return client, done
}

func complete(client *answertest.Client) {
	rid := client.LastRequest().RequestID
	client.Emit(answer.Started(rid, "qa-1"))
	client.Emit(answer.Chunk(rid, "qa-1", "X is "))
	client.Emit(answer.Completed(rid, "qa-1", "X is a thing.", []answer.Source{
		{Title: "X guide", URL: "https://docs.example.com/x"},
	}))
}

func wait(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Ask did not return")
		return nil
	}
}

func TestAsk_Text(t *testing.T) {
	out := &syncBuffer{}
	client, done := runAsk(context.Background(), t, "text", out)

	complete(client)
	require.NoError(t, wait(t, done))

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "X is a thing.\n"), got)
	assert.Contains(t, got, "Sources:")
	assert.Contains(t, got, "X guide")
	assert.Contains(t, got, "https://docs.example.com/x")
	assert.NotContains(t, got, "Q: ")
}

func TestAsk_Markdown(t *testing.T) {
	out := &syncBuffer{}
	client, done := runAsk(context.Background(), t, "markdown", out)

	complete(client)
	require.NoError(t, wait(t, done))

	got := out.String()
	assert.Contains(t, got, "> What is X?")
	assert.Contains(t, got, "[X guide](https://docs.example.com/x)")
}

func TestAsk_JSON(t *testing.T) {
	out := &syncBuffer{}
	client, done := runAsk(context.Background(), t, "json", out)

	complete(client)
	require.NoError(t, wait(t, done))

	var doc struct {
		Entries []struct {
			ID       string `json:"id"`
			Question string `json:"question"`
			Answer   string `json:"answer"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(out.String()), &doc))
	require.Len(t, doc.Entries, 1)
	assert.Equal(t, "qa-1", doc.Entries[0].ID)
	assert.Equal(t, "X is a thing.", doc.Entries[0].Answer)
}

func TestAsk_FailedAnswer(t *testing.T) {
	out := &syncBuffer{}
	client, done := runAsk(context.Background(), t, "", out)

	client.Emit(answer.Failed(client.LastRequest().RequestID, "", "service unavailable"))
	err := wait(t, done)

	require.ErrorIs(t, err, ErrAnswerFailed)
	assert.Contains(t, err.Error(), "service unavailable")
}

func TestAsk_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	out := &syncBuffer{}
	_, done := runAsk(ctx, t, "text", out)

	assert.ErrorIs(t, wait(t, done), context.DeadlineExceeded)
	assert.Empty(t, out.String())
}

func TestAsk_UnknownFormat(t *testing.T) {
	client, sess := newSession(t)

	err := Ask(context.Background(), sess, "What is X?", AskOptions{Format: "yaml", Out: &syncBuffer{}})

	require.Error(t, err)
	assert.Empty(t, client.Requests(), "nothing is asked for an unusable format")
}

func TestAsk_EmptyQuestion(t *testing.T) {
	_, sess := newSession(t)

	err := Ask(context.Background(), sess, "   ", AskOptions{Out: &syncBuffer{}})

	assert.True(t, answer.IsValidation(err))
	assert.False(t, errors.Is(err, ErrAnswerFailed))
}

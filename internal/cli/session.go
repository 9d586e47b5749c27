// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/askthread/internal/answer"
	"github.com/jeranaias/askthread/internal/conversation"
	"github.com/jeranaias/askthread/internal/feedback"
	"github.com/jeranaias/askthread/internal/session"
)

// Session is the conversation the command-line front ends drive.
// *session.Session implements it.
type Session interface {
	SubmitQuery(text string) error
	CancelGeneration() error
	ResetConversation()
	RecordReaction(entryID string, reaction answer.Reaction) error
	OpenCommentForm(entryID string) error
	CloseCommentForm()
	UpdateDraft(entryID string, draft feedback.Draft) error
	SubmitDetailedFeedback(entryID string, draft feedback.Draft) error
	View() session.View
	Subscribe(fn func(session.View)) (unsubscribe func())
	// Wait blocks until feedback deliveries in flight have finished.
	Wait()
}

var errConversationReset = errors.New("conversation was reset before the answer finished")

// =============================================================================
// WAITING FOR ANSWERS
// =============================================================================

// askAndWait submits question and blocks until its entry is complete or
// errored. onUpdate, when set, sees every state of the entry including the
// last one. A signal on interrupts stops the answer; one arriving before the
// answer has started is held until it does.
func askAndWait(
	ctx context.Context,
	sess Session,
	question string,
	interrupts <-chan os.Signal,
	notices io.Writer,
	onUpdate func(conversation.Entry),
) (conversation.Entry, error) {
	changed := make(chan struct{}, 1)
	unsubscribe := sess.Subscribe(func(session.View) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	if err := sess.SubmitQuery(question); err != nil {
		return conversation.Entry{}, err
	}
	last, ok := sess.View().Conversation.Last()
	if !ok {
		return conversation.Entry{}, errConversationReset
	}
	localID := last.LocalID

	stopRequested := false
	for {
		snap := sess.View().Conversation
		e, ok := snap.Entry(localID)
		if !ok {
			return conversation.Entry{}, errConversationReset
		}
		if onUpdate != nil {
			onUpdate(e)
		}
		if e.Status.Terminal() {
			return e, nil
		}
		if stopRequested && snap.GenerationState == conversation.GenerationGenerating && !snap.Cancelling {
			stopRequested = false
			if err := sess.CancelGeneration(); err != nil && !errors.Is(err, conversation.ErrNotGenerating) {
				return e, err
			}
		}

		select {
		case <-ctx.Done():
			// Best effort; the answer may already be finishing.
			_ = sess.CancelGeneration()
			return e, ctx.Err()
		case <-changed:
		case <-interrupts:
			err := sess.CancelGeneration()
			switch {
			case errors.Is(err, conversation.ErrNotGenerating):
				stopRequested = true
				notice(notices, warningStyle.Render("[Stopping once the answer starts]"))
			case err != nil:
				return e, err
			default:
				notice(notices, warningStyle.Render("[Stopping]"))
			}
		}
	}
}

func notice(w io.Writer, msg string) {
	if w != nil {
		fmt.Fprintln(w, msg)
	}
}

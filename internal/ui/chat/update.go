// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/askthread/internal/answer"
	"github.com/jeranaias/askthread/internal/conversation"
	"github.com/jeranaias/askthread/internal/export"
	"github.com/jeranaias/askthread/internal/feedback"
)

// =============================================================================
// KEY HANDLING
// =============================================================================

// handleKey dispatches a key, then re-reads the session so the next key
// sees the effect of this one even before the change signal arrives.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	next, cmd := m.dispatchKey(msg)
	nm, ok := next.(Model)
	if !ok {
		return next, cmd
	}
	refreshCmd := nm.refresh()
	return nm, tea.Batch(cmd, refreshCmd)
}

func (m Model) dispatchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.layout()
		m.updateViewport()
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		if err := m.ctrl.CancelGeneration(); err != nil {
			return m.setError(err)
		}
		return m.setStatus("Stopping answer...")

	case key.Matches(msg, m.keys.NewChat):
		m.ctrl.ResetConversation()
		m.selected = ""
		m.input.Reset()
		clear(m.rendered)
		return m.setStatus("Started a new conversation")

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m.copySelected()

	case key.Matches(msg, m.keys.Export):
		return m, m.exportTranscript()

	case key.Matches(msg, m.keys.SendComment):
		return m.sendComment()

	case key.Matches(msg, m.keys.CloseForm):
		if m.view.Feedback.OpenCommentID != "" {
			m.ctrl.CloseCommentForm()
		}
		return m, nil

	case key.Matches(msg, m.keys.FocusNote):
		if m.view.Feedback.OpenCommentID == "" {
			return m, nil
		}
		next := focusNote
		if m.focus == focusNote {
			next = focusInput
		}
		cmd := m.focusOn(next)
		return m, cmd
	}

	if m.focus == focusNote {
		return m.handleNoteKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Prev):
		m.moveSelection(-1)
		m.updateViewport()
		return m, nil

	case key.Matches(msg, m.keys.Next):
		m.moveSelection(1)
		m.updateViewport()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	// Conversation shortcuts only while nothing is typed.
	if m.input.Value() == "" {
		switch {
		case key.Matches(msg, m.keys.Upvote):
			return m.react(answer.ReactionUpvote)
		case key.Matches(msg, m.keys.Downvote):
			return m.react(answer.ReactionDownvote)
		}
		if m.view.Feedback.OpenCommentID != "" {
			switch {
			case key.Matches(msg, m.keys.FlagIncorrect):
				return m.toggleFlag(func(d *feedback.Draft) { d.Incorrect = !d.Incorrect })
			case key.Matches(msg, m.keys.FlagIrrelevant):
				return m.toggleFlag(func(d *feedback.Draft) { d.Irrelevant = !d.Irrelevant })
			case key.Matches(msg, m.keys.FlagUnaddress):
				return m.toggleFlag(func(d *feedback.Draft) { d.Unaddressed = !d.Unaddressed })
			}
		}
	}

	// The input is disabled while a question is in flight.
	if m.view.Conversation.Busy() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleNoteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) {
		return m.sendComment()
	}

	before := m.note.Value()
	var cmd tea.Cmd
	m.note, cmd = m.note.Update(msg)
	if m.note.Value() == before {
		return m, cmd
	}

	draft, ok := m.currentDraft()
	if !ok {
		return m, cmd
	}
	if err := m.ctrl.UpdateDraft(m.formID, draft); err != nil {
		m.note.SetValue(before)
		return m.setError(err)
	}
	return m, cmd
}

// =============================================================================
// INTENTS
// =============================================================================

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.view.Conversation.Busy() {
		return m.setStatus("Wait for the current answer, or press C-x to stop it")
	}
	if err := m.ctrl.SubmitQuery(m.input.Value()); err != nil {
		return m.setError(err)
	}
	m.input.Reset()
	m.selected = ""
	return m, nil
}

func (m Model) react(reaction answer.Reaction) (tea.Model, tea.Cmd) {
	e, ok := m.selectedEntry()
	if !ok {
		return m.setStatus("Nothing to rate yet")
	}
	if err := m.ctrl.RecordReaction(e.ID, reaction); err != nil {
		return m.setError(err)
	}
	if reaction == answer.ReactionDownvote {
		return m.setStatus("Sorry about that. Flag issues with 1-3, tab to add a note")
	}
	return m.setStatus("Thanks for the feedback")
}

func (m Model) toggleFlag(toggle func(*feedback.Draft)) (tea.Model, tea.Cmd) {
	draft, ok := m.currentDraft()
	if !ok {
		return m, nil
	}
	toggle(&draft)
	if err := m.ctrl.UpdateDraft(m.formID, draft); err != nil {
		return m.setError(err)
	}
	return m, nil
}

func (m Model) sendComment() (tea.Model, tea.Cmd) {
	draft, ok := m.currentDraft()
	if !ok {
		return m, nil
	}
	if err := m.ctrl.SubmitDetailedFeedback(m.formID, draft); err != nil {
		return m.setError(err)
	}
	cmd := m.focusOn(focusInput)
	return m, cmd
}

// currentDraft returns the open form's draft with the note as typed.
func (m *Model) currentDraft() (feedback.Draft, bool) {
	if m.formID == "" {
		return feedback.Draft{}, false
	}
	rec := m.view.Feedback.Record(m.formID)
	if rec.CommentDraft == nil {
		return feedback.Draft{}, false
	}
	draft := *rec.CommentDraft
	draft.Note = m.note.Value()
	return draft, true
}

func (m Model) copySelected() (tea.Model, tea.Cmd) {
	e, ok := m.selectedEntry()
	if !ok || e.Answer == "" {
		return m.setStatus("No answer to copy")
	}
	if err := m.copy(e.Answer); err != nil {
		return m.setError(fmt.Errorf("copy failed: %w", err))
	}
	return m.setStatus(fmt.Sprintf("Copied answer (%d chars)", len([]rune(e.Answer))))
}

// exportTranscript writes the conversation as markdown off the update loop.
func (m Model) exportTranscript() tea.Cmd {
	transcript := export.NewTranscript(m.view.Conversation, m.view.Feedback)
	opts := export.DefaultOptions()
	opts.OutputDir = m.exportDir
	return func() tea.Msg {
		exporter, err := export.ForFormat("markdown", opts)
		if err != nil {
			return exportDoneMsg{err: err}
		}
		path, err := export.ToFile(transcript, exporter, opts)
		return exportDoneMsg{path: path, err: err}
	}
}

// describeError turns intent errors into status bar text.
func describeError(err error) string {
	switch {
	case errors.Is(err, conversation.ErrEmptyQuery):
		return "Type a question first"
	case errors.Is(err, conversation.ErrGenerationInProgress):
		return "An answer is still being written"
	case errors.Is(err, conversation.ErrNotGenerating):
		return "Nothing to stop yet"
	case errors.Is(err, feedback.ErrFeedbackDisabled):
		return "Feedback opens once the answer is complete"
	case errors.Is(err, feedback.ErrSubmissionInFlight):
		return "Feedback is being sent"
	case errors.Is(err, feedback.ErrAlreadySubmitted):
		return "Feedback already sent"
	case errors.Is(err, export.ErrEmptyTranscript):
		return "Nothing to export yet"
	}
	return err.Error()
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/askthread/internal/answer"
	"github.com/jeranaias/askthread/internal/conversation"
	"github.com/jeranaias/askthread/internal/feedback"
	"github.com/jeranaias/askthread/internal/ui/styles"
	"github.com/jeranaias/askthread/internal/util"
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) renderChat() string {
	parts := []string{
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	}
	if m.showHelp {
		parts = append(parts, m.help.FullHelpView(m.keys.FullHelp()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("askthread")
	var state string
	conv := m.view.Conversation
	switch {
	case conv.Cancelling:
		state = "stopping..."
	case conv.GenerationState == conversation.GenerationPreparing:
		state = "thinking..."
	case conv.GenerationState == conversation.GenerationGenerating:
		state = "answering..."
	default:
		state = fmt.Sprintf("%d questions", len(conv.Entries))
	}
	header := title + "  " + m.theme.HeaderSubtitle.Render(state)
	if m.width > 0 && m.theme.GetLayoutMode() == styles.LayoutNarrow {
		header = m.theme.HeaderSubtitle.Render(state)
	}
	if m.width > 0 {
		return m.theme.Header.Width(m.width).Render(header)
	}
	return m.theme.Header.Render(header)
}

func (m Model) renderInput() string {
	field := m.input.View()
	if m.view.Conversation.Busy() {
		field = m.theme.Muted.Render("> waiting for the answer (C-x to stop)")
	}
	style := m.theme.InputContainer
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	return style.Render(field)
}

func (m Model) renderStatusBar() string {
	limit := m.width - 6
	if limit <= 0 {
		limit = 200
	}
	var left string
	switch {
	case m.status != "" && m.statusErr:
		left = m.theme.ErrorBanner.Render(styles.StatusIndicators.Error + " " + util.TruncateWidth(m.status, limit))
	case m.status != "":
		left = m.theme.Notice.Render(util.TruncateWidth(m.status, limit))
	case m.view.Conversation.LastError != "":
		left = m.theme.ErrorBanner.Render(styles.StatusIndicators.Error + " " + util.TruncateWidth(m.view.Conversation.LastError, limit))
	default:
		left = m.help.ShortHelpView(m.keys.ShortHelp())
	}
	style := m.theme.StatusBar.MaxHeight(1)
	if m.width > 0 {
		style = style.Width(m.width)
	}
	return style.Render(left)
}

// =============================================================================
// CONVERSATION
// =============================================================================

// updateViewport re-renders the conversation into the viewport and scrolls
// to the selected entry, or to the bottom when following the newest one.
func (m *Model) updateViewport() {
	m.viewport.SetContent(m.renderConversation())
	if m.selected == "" {
		m.viewport.GotoBottom()
		return
	}
	if off, ok := m.offsets[m.selected]; ok {
		m.viewport.SetYOffset(off)
	}
}

func (m *Model) renderConversation() string {
	clear(m.offsets)
	entries := m.view.Conversation.Entries
	if len(entries) == 0 {
		return m.renderWelcome()
	}

	selected, _ := m.selectedEntry()
	var b strings.Builder
	line := 0
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
			line += 2
		}
		m.offsets[e.LocalID] = line
		block := m.renderEntry(e, e.LocalID == selected.LocalID)
		b.WriteString(block)
		line += lipgloss.Height(block)
	}
	return b.String()
}

func (m *Model) renderWelcome() string {
	lines := []string{
		m.theme.HeaderTitle.Render("Ask anything about the docs."),
		"",
		m.theme.Muted.Render("Answers stream in as they are written. Rate them with + and -,"),
		m.theme.Muted.Render("and tell us what went wrong when an answer misses."),
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderEntry(e conversation.Entry, selected bool) string {
	var parts []string

	question := m.theme.QuestionLabel.Render("You") + "\n" + e.Question
	parts = append(parts, m.theme.Question.Render(question))

	answerStyle := m.theme.Answer
	if selected {
		answerStyle = m.theme.Selected
	}
	body := m.theme.AnswerLabel.Render("Answer") + "\n" + m.renderAnswer(e)
	if len(e.Sources) > 0 {
		body += "\n\n" + m.renderSources(e.Sources)
	}
	parts = append(parts, answerStyle.Render(body))

	if e.FeedbackEnabled {
		rec := m.view.Feedback.Record(e.ID)
		parts = append(parts, m.renderReactions(rec, selected))
		if rec.FormOpen() {
			parts = append(parts, m.renderForm(rec))
		}
	}
	return strings.Join(parts, "\n")
}

func (m *Model) renderAnswer(e conversation.Entry) string {
	switch e.Status {
	case conversation.StatusPending:
		return m.spinner.View() + " " + m.theme.StatusPending.Render("Thinking...")

	case conversation.StatusStreaming:
		return m.wrap(e.Answer) + " " + m.spinner.View()

	case conversation.StatusComplete:
		if !m.ui.Markdown {
			return m.wrap(e.Answer)
		}
		if out, ok := m.rendered[e.LocalID]; ok {
			return out
		}
		out := m.renderer.Render(e.Answer)
		m.rendered[e.LocalID] = out
		return out

	default:
		var note string
		if e.Cancelled {
			note = m.theme.StatusCancelled.Render(styles.StatusIndicators.Warning + " Answer stopped")
		} else {
			note = m.theme.StatusErrored.Render(styles.StatusIndicators.Error + " " + e.ErrorMessage)
		}
		if e.Answer == "" {
			return note
		}
		return m.wrap(e.Answer) + "\n" + note
	}
}

func (m *Model) wrap(s string) string {
	return lipgloss.NewStyle().Width(m.wrapWidth()).Render(s)
}

func (m *Model) renderSources(sources []answer.Source) string {
	lines := []string{m.theme.Source.Render("Sources")}
	for i, src := range sources {
		label := src.Title
		if src.Subtitle != "" {
			label += " (" + src.Subtitle + ")"
		}
		line := fmt.Sprintf("  %d. %s", i+1, m.theme.Source.Render(label))
		if src.URL != "" {
			line += "  " + m.theme.SourceLink.Render(src.URL)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// FEEDBACK
// =============================================================================

func (m *Model) renderReactions(rec feedback.Record, selected bool) string {
	up := m.theme.ReactionInactive.Render(styles.StatusIndicators.Up + " helpful")
	down := m.theme.ReactionInactive.Render(styles.StatusIndicators.Down + " not helpful")
	switch rec.Reaction {
	case answer.ReactionUpvote:
		up = m.theme.ReactionActive.Render(styles.StatusIndicators.Up + " helpful")
	case answer.ReactionDownvote:
		down = m.theme.ReactionDown.Render(styles.StatusIndicators.Down + " not helpful")
	}
	line := "  " + up + "  " + down
	if selected && rec.Reaction == answer.ReactionNone {
		line += "  " + m.theme.KeyHint.Render("press + or -")
	}
	return line
}

func (m *Model) renderForm(rec feedback.Record) string {
	draft := *rec.CommentDraft
	check := func(on bool, n int, label string) string {
		box := "[ ]"
		if on {
			box = "[x]"
		}
		return fmt.Sprintf("%s %d %s", box, n, label)
	}

	lines := []string{
		m.theme.FormTitle.Render("What went wrong?"),
		check(draft.Incorrect, 1, "Incorrect"),
		check(draft.Irrelevant, 2, "Irrelevant"),
		check(draft.Unaddressed, 3, "Didn't address my question"),
	}
	note := m.note.View()
	if m.focus == focusNote {
		note = m.theme.FormFocused.Render("> ") + note
	}
	lines = append(lines, note)

	switch rec.SubmissionState {
	case feedback.SubmissionSubmitting:
		lines = append(lines, m.spinner.View()+" Sending...")
	case feedback.SubmissionSubmitted:
		lines = append(lines, m.theme.FormSuccess.Render(styles.StatusIndicators.Success+" Thanks! Your feedback was sent."))
	case feedback.SubmissionFailed:
		lines = append(lines, m.theme.FormError.Render(styles.StatusIndicators.Error+" "+rec.ErrorMessage+" (C-s to retry)"))
	default:
		lines = append(lines, m.help.ShortHelpView(m.keys.FormHelp()))
	}

	return m.theme.Form.Render(strings.Join(lines, "\n"))
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/askthread/internal/answer"
	"github.com/jeranaias/askthread/internal/config"
	"github.com/jeranaias/askthread/internal/conversation"
	"github.com/jeranaias/askthread/internal/feedback"
	"github.com/jeranaias/askthread/internal/session"
	"github.com/jeranaias/askthread/internal/ui/markdown"
	"github.com/jeranaias/askthread/internal/ui/styles"
)

// Controller is the part of a session the chat view drives.
// *session.Session implements it.
type Controller interface {
	SubmitQuery(text string) error
	CancelGeneration() error
	ResetConversation()
	RecordReaction(entryID string, reaction answer.Reaction) error
	OpenCommentForm(entryID string) error
	CloseCommentForm()
	UpdateDraft(entryID string, draft feedback.Draft) error
	SubmitDetailedFeedback(entryID string, draft feedback.Draft) error
	View() session.View
}

// focus is the text field receiving typed characters.
type focus int

const (
	focusInput focus = iota // question input
	focusNote               // comment form note
)

// Options configures a chat Model.
type Options struct {
	Theme     *styles.Theme
	UI        config.UIConfig
	ExportDir string
	Logger    zerolog.Logger

	// Clipboard replaces the system clipboard, mainly for tests.
	Clipboard func(string) error
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view. It holds no conversation
// state of its own: everything it renders comes from the latest session
// view, and every key that changes state becomes a Controller intent.
type Model struct {
	ctrl Controller
	view session.View

	// Styling
	theme    *styles.Theme
	ui       config.UIConfig
	renderer *markdown.Renderer
	// rendered caches glamour output of completed answers by local id.
	rendered map[string]string

	// UI Components
	keys     KeyMap
	help     help.Model
	input    textinput.Model
	note     textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	focus    focus
	showHelp bool

	// selected is the LocalID of the entry reactions apply to; empty
	// follows the newest entry.
	selected string
	// formID is the entry whose draft the note input currently mirrors.
	formID string
	// offsets maps LocalID to the entry's first line in the viewport.
	offsets map[string]int

	width  int
	height int

	status    string
	statusErr bool
	statusSeq int

	exportDir string
	copy      func(string) error
	log       zerolog.Logger
}

// New creates a chat model driving ctrl.
func New(ctrl Controller, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(opts.UI.Theme)
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question..."
	ti.CharLimit = 4096
	ti.Focus()

	note := textinput.New()
	note.Prompt = "Note: "
	note.Placeholder = "What should the answer have said?"
	note.CharLimit = 1000

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.StatusPending

	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	exportDir := opts.ExportDir
	if exportDir == "" {
		exportDir = "."
	}

	m := Model{
		ctrl:      ctrl,
		view:      ctrl.View(),
		theme:     theme,
		ui:        opts.UI,
		renderer:  markdown.New(theme.GlamourStyle(), opts.UI.WordWrap),
		rendered:  make(map[string]string),
		keys:      DefaultKeyMap(),
		help:      help.New(),
		input:     ti,
		note:      note,
		viewport:  viewport.New(80, 20),
		spinner:   sp,
		offsets:   make(map[string]int),
		exportDir: exportDir,
		copy:      copyFn,
		log:       opts.Logger.With().Str("component", "chat").Logger(),
	}
	m.syncForm()
	m.updateViewport()
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink and the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case ViewChangedMsg:
		cmd := m.refresh()
		return m, cmd

	case UIConfigMsg:
		m.applyUI(config.UIConfig(msg))
		m.updateViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.view.Conversation.Busy() {
			m.updateViewport()
		}
		return m, cmd

	case statusClearMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			return m.setError(msg.err)
		}
		return m.setStatus("Exported to " + msg.path)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the chat view.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(m.width, m.height)
	m.layout()
	m.updateViewport()
	return m, nil
}

// layout sizes the viewport and inputs to the window.
func (m *Model) layout() {
	// header + input box (3 with border) + status bar, plus help when shown
	reserved := 1 + 3 + 1
	if m.showHelp {
		reserved += 5
	}
	height := m.height - reserved
	if height < 1 {
		height = 1
	}
	width := m.width
	if width < 1 {
		width = 1
	}
	m.viewport.Width = width
	m.viewport.Height = height

	inputWidth := m.width - 8
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth
	m.note.Width = inputWidth - 8
	m.help.Width = m.width

	m.renderer.Resize(m.theme.GlamourStyle(), m.wrapWidth())
	clear(m.rendered)
}

// wrapWidth is the width answers are rendered at.
func (m *Model) wrapWidth() int {
	if m.ui.WordWrap > 0 {
		return m.ui.WordWrap
	}
	if m.width > 6 {
		// border and padding of the answer block
		return m.width - 4
	}
	return markdown.DefaultWidth
}

func (m *Model) applyUI(ui config.UIConfig) {
	if ui.Theme != m.ui.Theme {
		m.theme = styles.NewTheme(ui.Theme)
		m.theme.SetSize(m.width, m.height)
		m.spinner.Style = m.theme.StatusPending
	}
	m.ui = ui
	m.renderer.Resize(m.theme.GlamourStyle(), m.wrapWidth())
	clear(m.rendered)
}

// refresh re-reads the session view and re-renders.
func (m *Model) refresh() tea.Cmd {
	m.view = m.ctrl.View()
	if len(m.view.Conversation.Entries) == 0 {
		clear(m.rendered)
	}
	if m.selected != "" {
		if _, ok := m.view.Conversation.Entry(m.selected); !ok {
			m.selected = ""
		}
	}
	cmd := m.syncForm()
	m.updateViewport()
	return cmd
}

// syncForm keeps focus and the note input in step with the open form.
func (m *Model) syncForm() tea.Cmd {
	openID := m.view.Feedback.OpenCommentID
	if openID == m.formID {
		return nil
	}
	m.formID = openID
	if openID == "" {
		m.note.Reset()
		return m.focusOn(focusInput)
	}
	if draft := m.view.Feedback.Record(openID).CommentDraft; draft != nil {
		m.note.SetValue(draft.Note)
	} else {
		m.note.Reset()
	}
	return nil
}

func (m *Model) focusOn(f focus) tea.Cmd {
	m.focus = f
	if f == focusNote {
		m.input.Blur()
		return m.note.Focus()
	}
	m.note.Blur()
	return m.input.Focus()
}

// setStatus shows a transient message in the status bar.
func (m Model) setStatus(text string) (tea.Model, tea.Cmd) {
	m.statusSeq++
	m.status = text
	m.statusErr = false
	return m, clearStatusAfter(m.statusSeq)
}

// setError shows err in the status bar.
func (m Model) setError(err error) (tea.Model, tea.Cmd) {
	m.statusSeq++
	m.status = describeError(err)
	m.statusErr = true
	return m, clearStatusAfter(m.statusSeq)
}

// =============================================================================
// SELECTION
// =============================================================================

// selectedEntry returns the entry reactions apply to.
func (m *Model) selectedEntry() (conversation.Entry, bool) {
	if m.selected != "" {
		return m.view.Conversation.Entry(m.selected)
	}
	return m.view.Conversation.Last()
}

func (m *Model) moveSelection(delta int) {
	entries := m.view.Conversation.Entries
	if len(entries) == 0 {
		return
	}
	idx := len(entries) - 1
	if m.selected != "" {
		for i, e := range entries {
			if e.LocalID == m.selected {
				idx = i
				break
			}
		}
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(entries) {
		// Moving past the newest entry resumes following it.
		m.selected = ""
		return
	}
	m.selected = entries[idx].LocalID
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Selected returns the LocalID of the selected entry, or "" when following
// the newest one.
func (m Model) Selected() string {
	return m.selected
}

// Status returns the status bar message.
func (m Model) Status() string {
	return m.status
}

// NoteFocused reports whether typing goes to the comment note.
func (m Model) NoteFocused() bool {
	return m.focus == focusNote
}

// InputValue returns the text typed into the question input.
func (m Model) InputValue() string {
	return m.input.Value()
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"github.com/jeranaias/askthread/internal/answer"
	"github.com/jeranaias/askthread/internal/conversation"
	"github.com/jeranaias/askthread/internal/export"
	"github.com/jeranaias/askthread/internal/feedback"
	"github.com/jeranaias/askthread/internal/telemetry"
	"github.com/jeranaias/askthread/internal/ui/markdown"
	"github.com/jeranaias/askthread/internal/ui/styles"
	"github.com/jeranaias/askthread/internal/util"
)

const historyFileName = "repl_history"

// LineReader reads one edited line at a time. *liner.State implements it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// REPLOptions configures a REPL.
type REPLOptions struct {
	// In reads input lines. Nil opens liner on the terminal.
	In  LineReader
	Out io.Writer
	// Err receives notices and errors; defaults to Out.
	Err io.Writer

	// HistoryDir holds the line history between runs when In is nil.
	HistoryDir string
	// ExportDir is where /export writes transcripts.
	ExportDir string
	// Markdown renders completed answers when set; otherwise answers
	// stream as plain text.
	Markdown *markdown.Renderer
	// Stats backs /stats and the exit summary.
	Stats func() telemetry.Stats
	// Interrupts stop the current answer. Nil listens for os.Interrupt.
	Interrupts <-chan os.Signal

	Logger zerolog.Logger
}

// REPL is an interactive line-mode conversation.
type REPL struct {
	sess       Session
	in         LineReader
	out        io.Writer
	errOut     io.Writer
	historyDir string
	exportDir  string
	md         *markdown.Renderer
	stats      func() telemetry.Stats
	interrupts <-chan os.Signal
	log        zerolog.Logger
}

// NewREPL creates a REPL driving sess.
func NewREPL(sess Session, opts REPLOptions) *REPL {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := opts.Err
	if errOut == nil {
		errOut = out
	}
	exportDir := opts.ExportDir
	if exportDir == "" {
		exportDir = "."
	}
	return &REPL{
		sess:       sess,
		in:         opts.In,
		out:        out,
		errOut:     errOut,
		historyDir: opts.HistoryDir,
		exportDir:  exportDir,
		md:         opts.Markdown,
		stats:      opts.Stats,
		interrupts: opts.Interrupts,
		log:        opts.Logger.With().Str("component", "repl").Logger(),
	}
}

// =============================================================================
// MAIN LOOP
// =============================================================================

// Run reads questions and commands until /quit, end of input or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	if r.in == nil {
		line := liner.NewLiner()
		line.SetCtrlCAborts(true)
		r.loadHistory(line)
		defer func() {
			r.saveHistory(line)
			line.Close()
		}()
		r.in = line
	}

	if r.interrupts == nil {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		defer signal.Stop(sig)
		r.interrupts = sig
	}

	r.printWelcome()
	defer r.printExitSummary()

	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := r.in.Prompt("ask> ")
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or closed input.
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				r.log.Debug().Err(err).Msg("prompt ended")
			}
			fmt.Fprintln(r.out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.in.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			keepGoing, err := r.handleCommand(input)
			if err != nil {
				r.printError(err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if err := r.ask(ctx, input); err != nil {
			r.printError(err)
		}
	}
}

// =============================================================================
// QUESTIONS
// =============================================================================

// ask submits question and prints the answer as it arrives.
func (r *REPL) ask(ctx context.Context, question string) error {
	// A Ctrl+C left over from before the question must not stop it.
	drain(r.interrupts)

	fmt.Fprintln(r.out)
	printed := 0
	e, err := askAndWait(ctx, r.sess, question, r.interrupts, r.errOut, func(e conversation.Entry) {
		if r.md != nil || len(e.Answer) <= printed {
			return
		}
		fmt.Fprint(r.out, e.Answer[printed:])
		printed = len(e.Answer)
	})
	if printed > 0 {
		fmt.Fprintln(r.out)
	}
	if err != nil {
		return err
	}

	switch {
	case e.Status == conversation.StatusComplete:
		if r.md != nil {
			fmt.Fprintln(r.out, r.md.Render(e.Answer))
		}
		r.printSources(e.Sources)
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, infoStyle.Render(fmt.Sprintf("[#%d] Rate this answer with /up or /down", r.number(e))))
	case e.Cancelled:
		if r.md != nil && e.Answer != "" {
			fmt.Fprintln(r.out, r.md.Render(e.Answer))
		}
		fmt.Fprintln(r.out, styles.RenderWarning("Answer stopped"))
	default:
		fmt.Fprintln(r.out, styles.RenderError(e.ErrorMessage))
	}
	fmt.Fprintln(r.out)
	return nil
}

func (r *REPL) printSources(sources []answer.Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, labelStyle.Render("Sources"))
	for i, src := range sources {
		title := src.Title
		if src.Subtitle != "" {
			title += " (" + src.Subtitle + ")"
		}
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, title)
		if src.URL != "" {
			fmt.Fprintf(r.out, "     %s\n", styles.RenderLink(src.URL))
		}
	}
}

// number returns the 1-based position of e in the conversation.
func (r *REPL) number(e conversation.Entry) int {
	for i, other := range r.sess.View().Conversation.Entries {
		if other.LocalID == e.LocalID {
			return i + 1
		}
	}
	return 0
}

// drain discards pending signals.
func drain(ch <-chan os.Signal) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand runs a slash command. It returns false when the REPL should exit.
func (r *REPL) handleCommand(input string) (bool, error) {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		r.printHelp()
		return true, nil

	case "/clear", "/c":
		r.sess.ResetConversation()
		fmt.Fprintln(r.out, commandStyle.Render("[Conversation cleared]"))
		return true, nil

	case "/up", "/down":
		reaction, err := answer.ParseReaction(strings.TrimPrefix(command, "/"))
		if err != nil {
			return true, err
		}
		return true, r.react(args, reaction)

	case "/comment":
		return true, r.comment(args)

	case "/export", "/e":
		return true, r.export(args)

	case "/stats", "/s":
		r.printStats()
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

// target resolves an optional answer number to an entry; no argument means
// the latest answer.
func (r *REPL) target(args []string) (conversation.Entry, error) {
	entries := r.sess.View().Conversation.Entries
	if len(entries) == 0 {
		return conversation.Entry{}, errors.New("no answers yet")
	}
	if len(args) == 0 {
		return entries[len(entries)-1], nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
	if err != nil || n < 1 || n > len(entries) {
		return conversation.Entry{}, fmt.Errorf("no answer #%s (1-%d)", args[0], len(entries))
	}
	return entries[n-1], nil
}

func (r *REPL) react(args []string, reaction answer.Reaction) error {
	e, err := r.target(args)
	if err != nil {
		return err
	}
	if err := r.sess.RecordReaction(e.ID, reaction); err != nil {
		return describe(err)
	}
	if reaction == answer.ReactionUpvote {
		fmt.Fprintln(r.out, styles.RenderSuccess("Thanks for the feedback"))
		return nil
	}
	fmt.Fprintln(r.out, styles.RenderInfo("Sorry about that. Tell us what went wrong with /comment"))
	return nil
}

// comment walks through the comment form for an answer and sends it.
func (r *REPL) comment(args []string) error {
	e, err := r.target(args)
	if err != nil {
		return err
	}
	if err := r.sess.OpenCommentForm(e.ID); err != nil {
		return describe(err)
	}

	var draft feedback.Draft
	if current := r.sess.View().Feedback.Record(e.ID).CommentDraft; current != nil {
		draft = *current
	}

	fmt.Fprintln(r.out, labelStyle.Render("What went wrong?"))
	questions := []struct {
		prompt string
		flag   *bool
	}{
		{"Incorrect? [y/N] ", &draft.Incorrect},
		{"Irrelevant? [y/N] ", &draft.Irrelevant},
		{"Didn't address your question? [y/N] ", &draft.Unaddressed},
	}
	for _, q := range questions {
		reply, err := r.in.Prompt("  " + q.prompt)
		if err != nil {
			r.sess.CloseCommentForm()
			fmt.Fprintln(r.out)
			fmt.Fprintln(r.out, infoStyle.Render("[Comment discarded]"))
			return nil
		}
		*q.flag = isYes(reply, *q.flag)
		if err := r.sess.UpdateDraft(e.ID, draft); err != nil {
			return describe(err)
		}
	}

	note, err := r.in.Prompt("  Note (optional): ")
	if err != nil {
		r.sess.CloseCommentForm()
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, infoStyle.Render("[Comment discarded]"))
		return nil
	}
	if note = strings.TrimSpace(note); note != "" {
		draft.Note = note
	}

	if err := r.sess.SubmitDetailedFeedback(e.ID, draft); err != nil {
		return describe(err)
	}
	r.sess.Wait()

	rec := r.sess.View().Feedback.Record(e.ID)
	switch rec.SubmissionState {
	case feedback.SubmissionSubmitted:
		fmt.Fprintln(r.out, styles.RenderSuccess("Thanks! Your feedback was sent."))
	case feedback.SubmissionFailed:
		return fmt.Errorf("feedback not sent: %s (run /comment again to retry)", rec.ErrorMessage)
	}
	return nil
}

// isYes interprets a y/N reply; an empty reply keeps current.
func isYes(reply string, current bool) bool {
	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "":
		return current
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (r *REPL) export(args []string) error {
	format := "markdown"
	if len(args) > 0 {
		format = args[0]
	}
	opts := export.DefaultOptions()
	opts.OutputDir = r.exportDir
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return err
	}
	view := r.sess.View()
	path, err := export.ToFile(export.NewTranscript(view.Conversation, view.Feedback), exporter, opts)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintln(r.out, styles.RenderSuccess("Exported to "+path))
	return nil
}

// describe turns session errors into messages for the REPL user.
func describe(err error) error {
	switch {
	case errors.Is(err, feedback.ErrFeedbackDisabled):
		return errors.New("feedback opens once the answer is complete")
	case errors.Is(err, feedback.ErrSubmissionInFlight):
		return errors.New("feedback is still being sent")
	case errors.Is(err, feedback.ErrAlreadySubmitted):
		return errors.New("feedback for this answer was already sent")
	case errors.Is(err, export.ErrEmptyTranscript):
		return errors.New("nothing to export yet")
	}
	return err
}

// =============================================================================
// DISPLAY
// =============================================================================

func (r *REPL) printError(err error) {
	fmt.Fprintf(r.errOut, "%s %v\n", errorStyle.Render("[Error]"), err)
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, welcomeStyle.Render("askthread"))
	fmt.Fprintln(r.out, rule(30))
	fmt.Fprintln(r.out, infoStyle.Render("Ask a question and press Enter. Commands: /help, /quit"))
	fmt.Fprintln(r.out)
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, headerStyle.Render("Available Commands"))
	fmt.Fprintln(r.out, rule(20))

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/clear, /c", "Start a new conversation"},
		{"/up [n]", "Mark answer n as helpful (default: latest)"},
		{"/down [n]", "Mark answer n as not helpful"},
		{"/comment [n]", "Tell us what went wrong with answer n"},
		{"/export [format]", "Save the conversation (markdown, json, text)"},
		{"/stats, /s", "Show session statistics"},
		{"/quit, /q", "Exit"},
	}
	for _, c := range commands {
		fmt.Fprintf(r.out, "  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-17s", c.cmd)),
			infoStyle.Render(c.desc))
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, infoStyle.Render("Tip: Ctrl+C stops the current answer, Ctrl+D exits"))
	fmt.Fprintln(r.out)
}

func (r *REPL) printStats() {
	if r.stats == nil {
		fmt.Fprintln(r.out, infoStyle.Render("[No statistics available]"))
		return
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, headerStyle.Render("Session Status"))
	fmt.Fprintln(r.out, rule(20))
	for _, line := range strings.Split(r.stats().String(), "\n") {
		fmt.Fprintln(r.out, "  "+line)
	}
	fmt.Fprintln(r.out)
}

func (r *REPL) printExitSummary() {
	if r.stats != nil {
		if s := r.stats(); s.Questions > 0 {
			fmt.Fprintln(r.out)
			fmt.Fprintln(r.out, headerStyle.Render("Session Summary"))
			fmt.Fprintln(r.out, rule(15))
			for _, line := range strings.Split(s.String(), "\n") {
				fmt.Fprintln(r.out, "  "+line)
			}
			fmt.Fprintln(r.out)
		}
	}
	fmt.Fprintln(r.out, infoStyle.Render("Goodbye!"))
}

// =============================================================================
// HISTORY
// =============================================================================

func (r *REPL) loadHistory(line *liner.State) {
	if r.historyDir == "" {
		return
	}
	f, err := os.Open(filepath.Join(r.historyDir, historyFileName))
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := line.ReadHistory(f); err != nil {
		r.log.Debug().Err(err).Msg("history not loaded")
	}
}

// saveHistory writes the history owner-readable only; questions may be
// sensitive.
func (r *REPL) saveHistory(line *liner.State) {
	if r.historyDir == "" {
		return
	}
	var buf strings.Builder
	if _, err := line.WriteHistory(&buf); err != nil {
		r.log.Debug().Err(err).Msg("history not saved")
		return
	}
	path := filepath.Join(r.historyDir, historyFileName)
	if err := util.AtomicWriteFileWithDir(path, []byte(buf.String()), 0o600, 0o700); err != nil {
		r.log.Debug().Err(err).Msg("history not saved")
	}
}

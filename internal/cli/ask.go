// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"

	"github.com/jeranaias/askthread/internal/conversation"
	"github.com/jeranaias/askthread/internal/export"
	"github.com/jeranaias/askthread/internal/ui/markdown"
)

// ErrAnswerFailed is returned by Ask when the answer errored or was stopped.
var ErrAnswerFailed = errors.New("answer failed")

// AskOptions configures Ask.
type AskOptions struct {
	// Format is text (default), markdown or json.
	Format string
	Out    io.Writer
	// Markdown renders markdown output for the terminal when set.
	Markdown *markdown.Renderer
	// Profile colours JSON output; Ascii leaves it plain.
	Profile termenv.Profile
	// Interrupts stop the answer, usually os.Interrupt.
	Interrupts <-chan os.Signal
	// Notices receives progress messages such as "[Stopping]".
	Notices io.Writer
}

// Ask submits one question, waits for the answer and prints it with its
// sources in the requested format.
func Ask(ctx context.Context, sess Session, question string, opts AskOptions) error {
	exporter, err := export.ForFormat(opts.Format, &export.Options{})
	if err != nil {
		return err
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	e, err := askAndWait(ctx, sess, question, opts.Interrupts, opts.Notices, nil)
	if err != nil {
		return err
	}

	transcript := export.NewTranscript(
		conversation.Snapshot{Entries: []conversation.Entry{e}},
		sess.View().Feedback,
	)
	data, err := exporter.Export(transcript)
	if err != nil {
		return err
	}

	out := string(data)
	switch exporter.(type) {
	case *export.MarkdownExporter:
		if opts.Markdown != nil {
			out = opts.Markdown.Render(out)
		}
	case *export.JSONExporter:
		out = highlight(out, "json", opts.Profile)
	}
	fmt.Fprintln(opts.Out, strings.TrimRight(out, "\n"))

	if e.Status == conversation.StatusErrored {
		if e.Cancelled {
			return fmt.Errorf("%w: stopped before it finished", ErrAnswerFailed)
		}
		return fmt.Errorf("%w: %s", ErrAnswerFailed, e.ErrorMessage)
	}
	return nil
}

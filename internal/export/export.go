// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/askthread/internal/conversation"
	"github.com/jeranaias/askthread/internal/feedback"
	"github.com/jeranaias/askthread/internal/util"
)

// ErrEmptyTranscript is returned when there is nothing to export.
var ErrEmptyTranscript = errors.New("conversation has no entries")

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the exported view of one conversation.
type Transcript struct {
	ExportedAt time.Time            `json:"exported_at"`
	Entries    []conversation.Entry `json:"entries"`
	// Feedback is keyed by entry ID.
	Feedback map[string]feedback.Record `json:"feedback,omitempty"`
}

// NewTranscript pairs a conversation snapshot with its feedback.
func NewTranscript(snap conversation.Snapshot, fb feedback.State) Transcript {
	return Transcript{
		ExportedAt: time.Now(),
		Entries:    snap.Entries,
		Feedback:   fb.Records,
	}
}

// Title returns the first question, shortened for headings and filenames.
func (t Transcript) Title() string {
	if len(t.Entries) == 0 {
		return "conversation"
	}
	return util.TruncateRunes(util.FirstLine(t.Entries[0].Question), 60)
}

// reaction returns the recorded reaction for e, if any.
func (t Transcript) reaction(e conversation.Entry) string {
	if e.ID == "" {
		return ""
	}
	return string(t.Feedback[e.ID].Reaction)
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a transcript to one output format.
type Exporter interface {
	Export(t Transcript) ([]byte, error)
	FileExtension() string
	MimeType() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	OutputDir string
	// IncludeMetadata adds a header with export time and counts.
	IncludeMetadata bool
	// IncludeTimestamps prints when each question was asked.
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// ForFormat returns the exporter for a format name: markdown, json or text.
func ForFormat(name string, opts *Options) (Exporter, error) {
	switch strings.ToLower(name) {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(), nil
	case "text", "txt", "":
		return NewTextExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want markdown, json or text)", name)
	}
}

// ToFile writes the transcript to a new file in opts.OutputDir and returns its path.
func ToFile(t Transcript, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("askthread_%s_%s%s",
		sanitizeFilename(t.Title()),
		t.ExportedAt.Format("20060102_150405"),
		exporter.FileExtension(),
	)
	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	s = util.TruncateRunesNoEllipsis(s, 40)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "conversation"
	}
	return b.String()
}

func statusNote(e conversation.Entry) string {
	switch {
	case e.Cancelled:
		return "cancelled"
	case e.Status == conversation.StatusErrored:
		if e.ErrorMessage != "" {
			return "failed: " + e.ErrorMessage
		}
		return "failed"
	case e.Status != conversation.StatusComplete:
		return e.Status.String()
	}
	return ""
}

func checkTranscript(t Transcript) error {
	if len(t.Entries) == 0 {
		return ErrEmptyTranscript
	}
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
)

// TextExporter writes a plain transcript without markup.
type TextExporter struct {
	options *Options
}

// NewTextExporter creates a new plain text exporter.
func NewTextExporter(opts *Options) *TextExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &TextExporter{options: opts}
}

// Export converts a transcript to plain text.
func (e *TextExporter) Export(t Transcript) ([]byte, error) {
	if err := checkTranscript(t); err != nil {
		return nil, err
	}

	var sb strings.Builder
	for i, entry := range t.Entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		if e.options.IncludeMetadata {
			fmt.Fprintf(&sb, "Q: %s\n\n", strings.TrimSpace(entry.Question))
		}
		if answer := strings.TrimSpace(entry.Answer); answer != "" {
			sb.WriteString(answer)
			sb.WriteString("\n")
		}
		if note := statusNote(entry); note != "" {
			fmt.Fprintf(&sb, "[answer %s]\n", note)
		}
		if len(entry.Sources) > 0 {
			sb.WriteString("\nSources:\n")
			for i, src := range entry.Sources {
				fmt.Fprintf(&sb, "  %d. %s", i+1, src.Title)
				if src.Subtitle != "" {
					fmt.Fprintf(&sb, " (%s)", src.Subtitle)
				}
				fmt.Fprintf(&sb, "\n     %s\n", src.URL)
			}
		}
	}
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for plain text.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}

// MimeType returns the MIME type for plain text.
func (e *TextExporter) MimeType() string {
	return "text/plain"
}

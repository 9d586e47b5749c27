// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a transcript to Markdown.
func (e *MarkdownExporter) Export(t Transcript) ([]byte, error) {
	if err := checkTranscript(t); err != nil {
		return nil, err
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(t.Title()))
		fmt.Fprintf(&sb, "questions: %d\n", len(t.Entries))
		fmt.Fprintf(&sb, "exported: %s\n", t.ExportedAt.Format(time.RFC3339))
		sb.WriteString("generator: askthread\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(t.Title()))

	for i, entry := range t.Entries {
		if e.options.IncludeTimestamps && !entry.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "## Q%d <sub>%s</sub>\n\n", i+1, entry.CreatedAt.Format("2006-01-02 15:04"))
		} else {
			fmt.Fprintf(&sb, "## Q%d\n\n", i+1)
		}
		fmt.Fprintf(&sb, "> %s\n\n", strings.ReplaceAll(strings.TrimSpace(entry.Question), "\n", "\n> "))

		if answer := strings.TrimSpace(entry.Answer); answer != "" {
			sb.WriteString(answer)
			sb.WriteString("\n\n")
		}
		if note := statusNote(entry); note != "" {
			fmt.Fprintf(&sb, "*Answer %s*\n\n", note)
		}

		if len(entry.Sources) > 0 {
			sb.WriteString("**Sources**\n\n")
			for _, src := range entry.Sources {
				title := escapeMarkdown(src.Title)
				if src.Subtitle != "" {
					title += " - " + escapeMarkdown(src.Subtitle)
				}
				fmt.Fprintf(&sb, "- [%s](%s)\n", title, src.URL)
			}
			sb.WriteString("\n")
		}

		if reaction := t.reaction(entry); reaction != "" {
			fmt.Fprintf(&sb, "<sub>Feedback: %s</sub>\n\n", reaction)
		}

		if i < len(t.Entries)-1 {
			sb.WriteString("---\n\n")
		}
	}

	fmt.Fprintf(&sb, "\n*Exported from askthread on %s*\n", t.ExportedAt.Format("January 2, 2006 at 3:04 PM"))
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break formatting in headings and links.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML quotes values containing YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}

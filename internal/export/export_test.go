// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/askthread/internal/answer"
	"github.com/jeranaias/askthread/internal/conversation"
	"github.com/jeranaias/askthread/internal/feedback"
)

func sampleTranscript() Transcript {
	asked := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	return Transcript{
		ExportedAt: asked.Add(time.Hour),
		Entries: []conversation.Entry{
			{
				LocalID:  "l1",
				ID:       "qa-1",
				Question: "What is X?",
				Answer:   "X is a thing.",
				Sources: []answer.Source{
					{Title: "X guide", Subtitle: "Basics", URL: "https://docs.example.com/x"},
				},
				Status:          conversation.StatusComplete,
				FeedbackEnabled: true,
				CreatedAt:       asked,
			},
			{
				LocalID:      "l2",
				ID:           "qa-2",
				Question:     "And Y?",
				Answer:       "Y is",
				Status:       conversation.StatusErrored,
				Cancelled:    true,
				ErrorMessage: "generation cancelled",
				CreatedAt:    asked.Add(time.Minute),
			},
		},
		Feedback: map[string]feedback.Record{
			"qa-1": {EntryID: "qa-1", Reaction: answer.ReactionDownvote},
		},
	}
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: What is X?\n"))
	assert.Contains(t, md, "# What is X?")
	assert.Contains(t, md, "## Q1 <sub>2025-03-01 09:30</sub>")
	assert.Contains(t, md, "> What is X?")
	assert.Contains(t, md, "X is a thing.")
	assert.Contains(t, md, "- [X guide - Basics](https://docs.example.com/x)")
	assert.Contains(t, md, "<sub>Feedback: downvote</sub>")
	assert.Contains(t, md, "*Answer cancelled*")
}

func TestMarkdownExporter_NoMetadata(t *testing.T) {
	out, err := NewMarkdownExporter(&Options{}).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.False(t, strings.HasPrefix(md, "---"))
	assert.Contains(t, md, "## Q2\n")
}

func TestMarkdownExporter_EscapesTitleFrontmatter(t *testing.T) {
	tr := sampleTranscript()
	tr.Entries[0].Question = "Why: does \"injection\" work?\ntitle: pwned"

	out, err := NewMarkdownExporter(nil).Export(tr)
	require.NoError(t, err)
	assert.Contains(t, string(out), `title: "Why: does \"injection\" work?"`+"\n")
	assert.NotContains(t, string(out), "\ntitle: pwned")
}

func TestJSONExporter(t *testing.T) {
	out, err := NewJSONExporter().Export(sampleTranscript())
	require.NoError(t, err)

	var decoded struct {
		Entries []struct {
			ID      string `json:"id"`
			Answer  string `json:"answer"`
			Sources []struct {
				URL string `json:"source_url"`
			} `json:"sources"`
		} `json:"entries"`
		Feedback map[string]struct {
			Reaction string `json:"reaction"`
		} `json:"feedback"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded.Entries, 2)
	assert.Equal(t, "qa-1", decoded.Entries[0].ID)
	assert.Equal(t, "https://docs.example.com/x", decoded.Entries[0].Sources[0].URL)
	assert.Equal(t, "downvote", decoded.Feedback["qa-1"].Reaction)
}

func TestTextExporter(t *testing.T) {
	tr := sampleTranscript()
	tr.Entries = tr.Entries[:1]

	out, err := NewTextExporter(&Options{}).Export(tr)
	require.NoError(t, err)
	want := "X is a thing.\n\nSources:\n  1. X guide (Basics)\n     https://docs.example.com/x\n"
	assert.Equal(t, want, string(out))

	out, err = NewTextExporter(nil).Export(sampleTranscript())
	require.NoError(t, err)
	assert.Contains(t, string(out), "Q: And Y?")
	assert.Contains(t, string(out), "[answer cancelled]")
}

func TestExporters_EmptyTranscript(t *testing.T) {
	for _, name := range []string{"markdown", "json", "text"} {
		exp, err := ForFormat(name, nil)
		require.NoError(t, err)
		_, err = exp.Export(Transcript{})
		assert.ErrorIs(t, err, ErrEmptyTranscript, name)
	}
}

func TestForFormat(t *testing.T) {
	exp, err := ForFormat("MD", nil)
	require.NoError(t, err)
	assert.Equal(t, ".md", exp.FileExtension())

	exp, err = ForFormat("json", nil)
	require.NoError(t, err)
	assert.Equal(t, "application/json", exp.MimeType())

	_, err = ForFormat("html", nil)
	assert.Error(t, err)
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	path, err := ToFile(sampleTranscript(), NewMarkdownExporter(nil), &Options{OutputDir: dir})
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, "askthread_What_is_X-_20250301_103000.md", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "X is a thing.")
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a-b-c_d", sanitizeFilename(`a/b:c d`))
	assert.Equal(t, "conversation", sanitizeFilename(""))
	assert.Equal(t, 40, len([]rune(sanitizeFilename(strings.Repeat("é", 50)))))
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
	"testing"

	"github.com/muesli/termenv"
)

func TestColorsEnabled(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		tty  bool
		want bool
	}{
		{"tty", nil, true, true},
		{"pipe", nil, false, false},
		{"no color wins", map[string]string{"NO_COLOR": "1", "FORCE_COLOR": "1"}, true, false},
		{"force color on pipe", map[string]string{"FORCE_COLOR": "1"}, false, true},
		{"empty no color ignored", map[string]string{"NO_COLOR": ""}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(key string) (string, bool) {
				v, ok := tt.env[key]
				return v, ok
			}
			if got := colorsEnabled(lookup, tt.tty); got != tt.want {
				t.Errorf("colorsEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHighlight(t *testing.T) {
	src := `{"answer": "X is a thing.", "count": 2}`

	if got := highlight(src, "json", termenv.Ascii); got != src {
		t.Errorf("Ascii profile changed the source: %q", got)
	}

	got := highlight(src, "json", termenv.ANSI256)
	if !strings.Contains(got, "\x1b[") {
		t.Errorf("expected ANSI escapes, got %q", got)
	}
	if !strings.Contains(got, "X is a thing.") {
		t.Errorf("highlighted output lost the text: %q", got)
	}
}

func TestRule(t *testing.T) {
	if got := []rune(rule(5)); len(got) < 5 {
		t.Errorf("rule(5) too short: %q", string(got))
	}
}

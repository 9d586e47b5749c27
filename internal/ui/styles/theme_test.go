// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestNewTheme_ForcedModes(t *testing.T) {
	dark := NewTheme(ModeDark)
	if !dark.IsDark {
		t.Error("ModeDark should set IsDark")
	}
	if dark.GlamourStyle() != "dark" {
		t.Errorf("GlamourStyle() = %q, want dark", dark.GlamourStyle())
	}

	light := NewTheme(ModeLight)
	if light.IsDark {
		t.Error("ModeLight should clear IsDark")
	}
	if light.GlamourStyle() != "light" {
		t.Errorf("GlamourStyle() = %q, want light", light.GlamourStyle())
	}
}

func TestThemeStylesRender(t *testing.T) {
	theme := NewTheme(ModeDark)

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", theme.Header},
		{"Question", theme.Question},
		{"Answer", theme.Answer},
		{"Selected", theme.Selected},
		{"Form", theme.Form},
		{"InputContainer", theme.InputContainer},
		{"StatusBar", theme.StatusBar},
	}

	for _, s := range styles {
		t.Run(s.name, func(t *testing.T) {
			if !strings.Contains(s.style.Render("hello"), "hello") {
				t.Errorf("%s style lost its content", s.name)
			}
		})
	}
}

func TestLayoutMode(t *testing.T) {
	theme := NewTheme(ModeDark)
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{80, LayoutMedium},
		{120, LayoutWide},
	}
	for _, tt := range tests {
		theme.SetSize(tt.width, 24)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("width %d: GetLayoutMode() = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestRenderHelpersIncludeIndicators(t *testing.T) {
	tests := []struct {
		got    string
		marker string
	}{
		{RenderSuccess("sent"), StatusIndicators.Success},
		{RenderError("failed"), StatusIndicators.Error},
		{RenderWarning("careful"), StatusIndicators.Warning},
		{RenderInfo("note"), StatusIndicators.Info},
	}
	for _, tt := range tests {
		if !strings.Contains(tt.got, tt.marker) {
			t.Errorf("%q missing marker %q", tt.got, tt.marker)
		}
	}
}

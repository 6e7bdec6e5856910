package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// TestPlainProfilePassesTextThrough verifies styling is a no-op once
// colors are disabled, the --no-color / NO_COLOR path.
func TestPlainProfilePassesTextThrough(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	for name, fn := range map[string]func(string) string{
		"RenderPass":   RenderPass,
		"RenderWarn":   RenderWarn,
		"RenderFail":   RenderFail,
		"RenderAccent": RenderAccent,
		"RenderMuted":  RenderMuted,
		"RenderURL":    RenderURL,
	} {
		if got := fn("hello"); got != "hello" {
			t.Errorf("%s(%q) = %q, want plain text", name, "hello", got)
		}
	}
}

// TestColorProfileWrapsText verifies styles emit escape sequences when
// a color profile is active, independent of the test terminal.
func TestColorProfileWrapsText(t *testing.T) {
	lipgloss.SetColorProfile(termenv.TrueColor)
	defer lipgloss.SetColorProfile(termenv.Ascii)

	got := RenderPass("synced")
	if !strings.Contains(got, "synced") {
		t.Fatalf("RenderPass() lost its text: %q", got)
	}
	if got == "synced" {
		t.Error("RenderPass() produced no styling under TrueColor profile")
	}
}

// TestRenderStatusMapsEveryOutcome verifies each status word keeps its
// text under styling.
func TestRenderStatusMapsEveryOutcome(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	for _, status := range []string{"ok", "skipped", "needs_auth", "error"} {
		if got := RenderStatus(status); got != status {
			t.Errorf("RenderStatus(%q) = %q, want plain text under Ascii profile", status, got)
		}
	}
}

// TestInitHonorsNoColorFlag verifies the explicit opt-out wins over
// terminal detection.
func TestInitHonorsNoColorFlag(t *testing.T) {
	Init(true)

	if got := RenderFail("broken"); got != "broken" {
		t.Errorf("RenderFail() after Init(true) = %q, want plain text", got)
	}
}

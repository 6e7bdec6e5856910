// Package ui styles CLI output. Colors adapt to light and dark
// terminal backgrounds and degrade to plain text when the terminal
// lacks color support or the user opts out.
package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	passStyle   = lipgloss.NewStyle().Foreground(ac("28", "40"))   // green
	warnStyle   = lipgloss.NewStyle().Foreground(ac("130", "214")) // orange
	failStyle   = lipgloss.NewStyle().Foreground(ac("124", "203")) // red
	accentStyle = lipgloss.NewStyle().Foreground(ac("27", "75"))   // blue
	mutedStyle  = lipgloss.NewStyle().Foreground(ac("240", "243"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
	urlStyle    = lipgloss.NewStyle().Foreground(ac("27", "75")).Underline(true)
)

// Init applies the terminal's color profile. noColor (the --no-color
// flag) and the NO_COLOR convention force plain output.
func Init(noColor bool) {
	if noColor || strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.ColorProfile())
}

// RenderPass renders s in the success color.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn renders s in the warning color.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderFail renders s in the failure color.
func RenderFail(s string) string { return failStyle.Render(s) }

// RenderAccent renders s in the accent color, for ids and values
// worth spotting in a line of prose.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderMuted renders s dimmed, for timestamps and secondary detail.
func RenderMuted(s string) string { return mutedStyle.Render(s) }

// RenderBold renders s bold.
func RenderBold(s string) string { return boldStyle.Render(s) }

// RenderURL renders s as a link: accent colored and underlined.
func RenderURL(s string) string { return urlStyle.Render(s) }

// RenderStatus renders a sync status word in its semantic color: ok
// green, skipped muted, needs_auth orange, anything else red.
func RenderStatus(s string) string {
	switch s {
	case "ok":
		return RenderPass(s)
	case "skipped":
		return RenderMuted(s)
	case "needs_auth":
		return RenderWarn(s)
	default:
		return RenderFail(s)
	}
}

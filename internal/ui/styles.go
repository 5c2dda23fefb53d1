// Package ui holds the terminal styles shared by todosync commands.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle  = lipgloss.NewStyle().Faint(true)
	doneStyle   = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

func init() {
	if ColorDisabled() {
		DisableColor()
	}
}

// ColorDisabled reports whether NO_COLOR is set or the output is not a
// terminal.
func ColorDisabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	return termenv.NewOutput(os.Stdout).EnvColorProfile() == termenv.Ascii
}

// DisableColor turns every style into plain text.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func RenderPass(s string) string   { return passStyle.Render(s) }
func RenderWarn(s string) string   { return warnStyle.Render(s) }
func RenderFail(s string) string   { return failStyle.Render(s) }
func RenderAccent(s string) string { return accentStyle.Render(s) }
func RenderMuted(s string) string  { return mutedStyle.Render(s) }
func RenderTitle(s string) string  { return titleStyle.Render(s) }

// RenderDone renders a completed todo's title.
func RenderDone(s string) string { return doneStyle.Render(s) }

// Checkbox returns the list marker for a todo.
func Checkbox(completed bool) string {
	if completed {
		return RenderPass("☑")
	}
	return "☐"
}

// Panel draws lines inside a rounded border.
func Panel(lines ...string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)
	return border.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

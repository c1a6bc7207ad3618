package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

const taskInputHint = "a: add a task"

// renderTaskInput draws the new-task input as one line of width cells. While
// the task list has focus an empty input shows a key hint instead of the
// placeholder.
func renderTaskInput(width int, in textinput.Model) string {
	width = max(width, 10)
	inner := width - 2

	var content string
	switch {
	case in.Focused():
		content = in.View()
	case in.Value() == "":
		content = styleMuted().Render(taskInputHint)
	default:
		content = styleMuted().Render(in.Value())
	}
	content = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(content)
	if xansi.StringWidth(content) > inner {
		content = xansi.Truncate(content, inner, "")
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		Background(colorInputBg).
		Render(content)
}

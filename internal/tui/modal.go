package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// modalBodyWidth is the content width of a modal on a terminal of width w.
func modalBodyWidth(w int) int {
	bodyW := w - 12
	if bodyW > 72 {
		bodyW = 72
	}
	if bodyW < 28 {
		bodyW = 28
	}
	return bodyW
}

func renderModalBox(width int, title string, content string) string {
	bodyW := modalBodyWidth(width)
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorSurfaceFg).
		Background(colorControlBg).
		Width(bodyW).
		Padding(0, 1).
		Render(title)
	body := lipgloss.NewStyle().
		Foreground(colorSurfaceFg).
		Width(bodyW).
		Padding(1, 1, 0, 1).
		Render(strings.TrimRight(content, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorModalBorder).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, body))
}

func renderAlertModal(width int, title, message string) string {
	bodyW := modalBodyWidth(width)
	msg := lipgloss.NewStyle().Width(bodyW - 2).Render(message)
	btn := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(colorSelectedFg).
		Background(colorSelectedBg).
		Bold(true).
		Render("OK")
	help := styleMuted().Render("enter/esc: close")
	return renderModalBox(width, title, strings.Join([]string{msg, "", btn, "", help}, "\n"))
}

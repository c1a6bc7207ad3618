package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// The TUI must stay readable on light and dark terminals, so colors are
// adaptive and "faint" is only applied on dark backgrounds.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted       = ac("240", "243")
	colorSelectedBg  = ac("#e9e9e9", "#262626")
	colorSelectedFg  = ac("235", "255")
	colorSurfaceFg   = ac("235", "252")
	colorControlBg   = ac("252", "235")
	colorInputBg     = ac("254", "234")
	colorAccent      = ac("27", "62")
	colorDanger      = ac("160", "203")
	colorModalBorder = ac("250", "243")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleTitle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
}

// applyColorProfilePreference sets the Lip Gloss profile from the
// environment.
func applyColorProfilePreference() {
	lipgloss.SetColorProfile(colorProfileFromEnv(termenv.ColorProfile()))
}

// colorProfileFromEnv honors NO_COLOR and lets TERM and COLORTERM raise the
// detected profile, which under-reports on some terminals.
func colorProfileFromEnv(detected termenv.Profile) termenv.Profile {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return termenv.Ascii
	}
	colorterm := strings.ToLower(os.Getenv("COLORTERM"))
	term := strings.ToLower(os.Getenv("TERM"))
	switch {
	case detected == termenv.Ascii:
		return detected
	case strings.Contains(colorterm, "truecolor"), strings.Contains(colorterm, "24bit"):
		return termenv.TrueColor
	case strings.Contains(term, "256color") && detected == termenv.ANSI:
		return termenv.ANSI256
	}
	return detected
}

// applyThemePreference fixes the background for adaptive colors:
// TASKDECK_TUI_THEME=light|dark wins, then the COLORFGBG "fg;bg" hint.
// Otherwise Lip Gloss queries the terminal.
func applyThemePreference() {
	if dark, ok := darkBackgroundFromEnv(); ok {
		lipgloss.SetHasDarkBackground(dark)
	}
}

func darkBackgroundFromEnv() (dark, ok bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("TASKDECK_TUI_THEME"))) {
	case "light":
		return false, true
	case "dark":
		return true, true
	}
	v := strings.TrimSpace(os.Getenv("COLORFGBG"))
	if v == "" {
		return false, false
	}
	parts := strings.Split(v, ";")
	bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return false, false
	}
	return bg < 7, true
}

package tui

import (
	"testing"

	"github.com/muesli/termenv"
)

func TestColorProfileFromEnv(t *testing.T) {
	cases := []struct {
		name      string
		noColor   string
		term      string
		colorterm string
		detected  termenv.Profile
		want      termenv.Profile
	}{
		{name: "no color wins", noColor: "1", colorterm: "truecolor", detected: termenv.TrueColor, want: termenv.Ascii},
		{name: "colorterm raises", colorterm: "truecolor", detected: termenv.ANSI, want: termenv.TrueColor},
		{name: "256color term raises ansi", term: "xterm-256color", detected: termenv.ANSI, want: termenv.ANSI256},
		{name: "ascii stays ascii", term: "xterm-256color", colorterm: "24bit", detected: termenv.Ascii, want: termenv.Ascii},
		{name: "detected kept", term: "xterm", detected: termenv.ANSI256, want: termenv.ANSI256},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tc.noColor)
			t.Setenv("TERM", tc.term)
			t.Setenv("COLORTERM", tc.colorterm)
			if got := colorProfileFromEnv(tc.detected); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDarkBackgroundFromEnv(t *testing.T) {
	t.Setenv("TASKDECK_TUI_THEME", "")
	t.Setenv("COLORFGBG", "15;0")
	if dark, ok := darkBackgroundFromEnv(); !ok || !dark {
		t.Fatalf("expected dark from COLORFGBG; got dark=%v ok=%v", dark, ok)
	}

	t.Setenv("COLORFGBG", "0;15")
	if dark, ok := darkBackgroundFromEnv(); !ok || dark {
		t.Fatalf("expected light from COLORFGBG; got dark=%v ok=%v", dark, ok)
	}

	t.Setenv("TASKDECK_TUI_THEME", "dark")
	if dark, ok := darkBackgroundFromEnv(); !ok || !dark {
		t.Fatalf("expected theme env to win")
	}

	t.Setenv("TASKDECK_TUI_THEME", "")
	t.Setenv("COLORFGBG", "")
	if _, ok := darkBackgroundFromEnv(); ok {
		t.Fatalf("expected no hint")
	}
}

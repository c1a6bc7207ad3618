package tui

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

type rendererKey struct {
	style string
	width int
}

// helpRenderers caches glamour renderers per style and wrap width. Building
// one is slow, and the help modal re-renders on every resize.
// WithAutoStyle is not used: it can block on terminal background queries.
var helpRenderers = struct {
	sync.Mutex
	m map[rendererKey]*glamour.TermRenderer
}{m: map[rendererKey]*glamour.TermRenderer{}}

func helpRenderer(key rendererKey) (*glamour.TermRenderer, error) {
	helpRenderers.Lock()
	defer helpRenderers.Unlock()
	if r := helpRenderers.m[key]; r != nil {
		return r, nil
	}
	cfg := markdownStyleConfig(key.style)
	noMargin := uint(0)
	cfg.Document.Margin = &noMargin
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(cfg),
		glamour.WithWordWrap(key.width),
	)
	if err != nil {
		return nil, err
	}
	helpRenderers.m[key] = r
	return r, nil
}

// renderMarkdown renders a docs topic for the help modal. On any renderer
// error the raw markdown is shown instead.
func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	r, err := helpRenderer(rendererKey{style: markdownStyle(), width: max(width, 10)})
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func markdownStyleConfig(style string) ansi.StyleConfig {
	cfg := styles.DarkStyleConfig
	if style == "light" {
		cfg = styles.LightStyleConfig
	}

	fg := paletteColor(colorSurfaceFg, style)
	for _, block := range []*ansi.StyleBlock{&cfg.Heading, &cfg.H1, &cfg.H2, &cfg.H3} {
		block.Color = fg
	}
	cfg.Text.Color = fg
	cfg.Code.Color = paletteColor(colorAccent, style)
	cfg.Strong.Color = nil
	cfg.Emph.Color = nil
	return cfg
}

// markdownStyle is "light" or "dark": TASKDECK_TUI_THEME first, then the
// terminal background.
func markdownStyle() string {
	switch v := strings.ToLower(strings.TrimSpace(os.Getenv("TASKDECK_TUI_THEME"))); v {
	case "light", "dark":
		return v
	}
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

func paletteColor(c lipgloss.AdaptiveColor, style string) *string {
	v := c.Dark
	if style == "light" {
		v = c.Light
	}
	return &v
}

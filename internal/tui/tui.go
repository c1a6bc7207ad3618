package tui

import (
	"context"
	"errors"
	"os"

	"taskdeck/internal/selection"
	"taskdeck/internal/store"
	"taskdeck/internal/viewmodel"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

type Options struct {
	Store  store.Client
	Logger *log.Logger
	// Glyphs is the configured glyph set ("unicode" or "ascii").
	Glyphs string
}

// Run shows the project and task screens until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	if opts.Store == nil {
		return errors.New("tui: store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr)
	}

	applyColorProfilePreference()
	applyThemePreference()
	applyGlyphPreference(opts.Glyphs)

	sel := selection.New()
	b := newBridge()
	projects := viewmodel.NewProjectList(opts.Store, sel, b, logger)
	tasks := viewmodel.NewTaskList(opts.Store, sel, b, logger)

	m := newAppModel(ctx, projects, tasks, b, logger)
	defer m.shutdown()

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

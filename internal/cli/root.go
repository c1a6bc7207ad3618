package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"taskdeck/internal/format"
	"taskdeck/internal/store"
	"taskdeck/internal/tui"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

type App struct {
	ConfigPath string
	Backend    string
	PrettyJSON bool
	Format     string

	cfg    *store.Config
	logger *log.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "taskdeck",
		Short:        "Projects and their tasks, live-synced from a document store",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  taskdeck

  # Scriptable commands
  taskdeck projects list
  taskdeck tasks add <project-id> "Buy milk"

  # Share one store between machines
  taskdeck serve --addr 0.0.0.0:8787
  TASKDECK_STORE=remote TASKDECK_ENDPOINT=http://host:8787 taskdeck
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("TASKDECK_CONFIG", ""), "Config file (default: first of config.yaml|config.yml|config.toml in ~/.taskdeck)")
	cmd.PersistentFlags().StringVar(&app.Backend, "store", "", "Store backend (sqlite|remote); overrides the config file")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON/EDN output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TASKDECK_FORMAT", "json"), "Output format ("+strings.Join(format.Names, "|")+")")

	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	cfg, err := app.config()
	if err != nil {
		return writeErr(cmd, err)
	}
	// The TUI owns the terminal, so logs go to a file.
	logger, closeLogs, err := newFileLogger(cfg.Log)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer closeLogs()
	app.logger = logger

	st, err := app.openStore(cmd.Context())
	if err != nil {
		return writeErr(cmd, err)
	}
	defer st.Close()

	return tui.Run(cmd.Context(), tui.Options{
		Store:  st,
		Logger: logger,
		Glyphs: cfg.TUI.Glyphs,
	})
}

// config loads the configuration once per invocation.
func (a *App) config() (store.Config, error) {
	if a.cfg != nil {
		return *a.cfg, nil
	}
	cfg, err := store.LoadConfig(a.ConfigPath)
	if err != nil {
		return store.Config{}, err
	}
	if b := strings.ToLower(strings.TrimSpace(a.Backend)); b != "" {
		cfg.Store.Backend = b
		if err := cfg.Validate(); err != nil {
			return store.Config{}, err
		}
	}
	a.cfg = &cfg
	return cfg, nil
}

func (a *App) log() *log.Logger {
	if a.logger != nil {
		return a.logger
	}
	level := "info"
	if a.cfg != nil {
		level = a.cfg.Log.Level
	}
	a.logger = newLogger(os.Stderr, level)
	return a.logger
}

func (a *App) openStore(ctx context.Context) (store.Client, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(ctx, cfg.Store, a.log())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	return st, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

func envelope(v any) map[string]any {
	return map[string]any{"data": v}
}

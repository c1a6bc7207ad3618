package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"taskdeck/internal/store"

	"github.com/charmbracelet/log"
)

func newLogger(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		Prefix:          "taskdeck",
	})
}

// newFileLogger appends to cfg.File, creating its directory if needed.
func newFileLogger(cfg store.LogConfig) (*log.Logger, func(), error) {
	path := strings.TrimSpace(cfg.File)
	if path == "" {
		return newLogger(io.Discard, cfg.Level), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return newLogger(f, cfg.Level), func() { _ = f.Close() }, nil
}

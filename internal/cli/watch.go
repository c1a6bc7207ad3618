package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
)

// snapshotWriter prints one document per store snapshot. Snapshots arrive on
// store goroutines; wait blocks the command until it is interrupted or the
// subscription ends.
type snapshotWriter struct {
	cmd *cobra.Command
	app *App

	mu   sync.Mutex
	done chan error
	once sync.Once
}

func newSnapshotWriter(cmd *cobra.Command, app *App) *snapshotWriter {
	return &snapshotWriter{cmd: cmd, app: app, done: make(chan error, 1)}
}

func (w *snapshotWriter) write(v any) {
	w.mu.Lock()
	err := writeOut(w.cmd, w.app, v)
	w.mu.Unlock()
	if err != nil {
		w.finish(err)
	}
}

func (w *snapshotWriter) fail(err error) { w.finish(err) }

// finish ends wait with err (nil for a clean stop).
func (w *snapshotWriter) finish(err error) {
	w.once.Do(func() { w.done <- err })
}

func (w *snapshotWriter) wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		return nil
	case err := <-w.done:
		return err
	}
}

// interruptContext is the command context, cancelled on SIGINT/SIGTERM.
func interruptContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

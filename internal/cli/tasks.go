package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"taskdeck/internal/model"
	"taskdeck/internal/store"
	"taskdeck/internal/viewmodel"

	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task commands (tasks live inside a project)",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksAddCmd(app))
	cmd.AddCommand(newTasksRmCmd(app))
	cmd.AddCommand(newTasksWatchCmd(app))
	return cmd
}

// mustGetProject returns notFoundError when the project does not exist.
func mustGetProject(ctx context.Context, st store.Client, id string) (model.Project, error) {
	p, ok, err := st.GetProject(ctx, id)
	if err != nil {
		return model.Project{}, err
	}
	if !ok {
		return model.Project{}, errNotFound("project", id)
	}
	return p, nil
}

func newTasksListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List a project's tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			p, err := mustGetProject(cmd.Context(), st, strings.TrimSpace(args[0]))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope(p.Tasks))
		},
	}
}

func newTasksAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <project-id> <name>",
		Short: "Add a task to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[1])
			if name == "" {
				return writeErr(cmd, viewmodel.ErrEmptyTaskName)
			}

			ctx := cmd.Context()
			st, err := app.openStore(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			p, err := mustGetProject(ctx, st, strings.TrimSpace(args[0]))
			if err != nil {
				return writeErr(cmd, err)
			}
			task := model.NewTask(name, time.Now())
			if err := st.UpdateTasks(ctx, p.ID, store.ArrayUnion(task)); err != nil {
				return writeErr(cmd, fmt.Errorf("add task: %w", err))
			}
			return writeOut(cmd, app, envelope(task))
		},
	}
}

func newTasksRmCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm <project-id> <task-id>",
		Short: "Delete a task (asks first unless --yes)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := app.openStore(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			p, err := mustGetProject(ctx, st, strings.TrimSpace(args[0]))
			if err != nil {
				return writeErr(cmd, err)
			}
			taskID := strings.TrimSpace(args[1])
			var task *model.Task
			for i := range p.Tasks {
				if p.Tasks[i].ID == taskID {
					task = &p.Tasks[i]
					break
				}
			}
			if task == nil {
				return writeErr(cmd, errNotFound("task", taskID))
			}

			if !yes {
				ok, err := confirm(cmd, fmt.Sprintf("Are you sure you want to delete %q?", task.Name))
				if err != nil {
					return writeErr(cmd, err)
				}
				if !ok {
					return writeErr(cmd, errAborted)
				}
			}

			if err := st.UpdateTasks(ctx, p.ID, store.ArrayRemove(*task)); err != nil {
				return writeErr(cmd, fmt.Errorf("delete task: %w", err))
			}
			return writeOut(cmd, app, envelope(map[string]any{"projectId": p.ID, "id": task.ID, "deleted": true}))
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}

// confirm asks on stderr and reads one line from stdin.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		// EOF without an answer is a "no".
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func newTasksWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <project-id>",
		Short: "Print a project's tasks every time they change (until interrupted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			id := strings.TrimSpace(args[0])
			w := newSnapshotWriter(cmd, app)
			sub, err := st.WatchProject(id,
				func(snap store.ProjectSnapshot) {
					if !snap.Exists {
						w.finish(errNotFound("project", id))
						return
					}
					w.write(envelope(snap.Project.Tasks))
				},
				w.fail,
			)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer sub.Unsubscribe()
			if err := w.wait(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskdeck/internal/model"
	"taskdeck/internal/publish"
	"taskdeck/internal/store"

	"github.com/spf13/cobra"
)

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project commands",
	}
	cmd.AddCommand(newProjectsListCmd(app))
	cmd.AddCommand(newProjectsCreateCmd(app))
	cmd.AddCommand(newProjectsDeleteCmd(app))
	cmd.AddCommand(newProjectsWatchCmd(app))
	cmd.AddCommand(newProjectsPublishCmd(app))
	return cmd
}

func newProjectsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			ps, err := st.ListProjects(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope(ps))
		},
	}
}

func newProjectsCreateCmd(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: `Create a project (default name: "New Project N")`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := app.openStore(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			p, err := createProject(ctx, st, strings.TrimSpace(name), time.Now())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope(p))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name")
	return cmd
}

// createProject names an unnamed project after the current project count, the
// same way the project screen does.
func createProject(ctx context.Context, st store.Client, name string, now time.Time) (model.Project, error) {
	if name == "" {
		ps, err := st.ListProjects(ctx)
		if err != nil {
			return model.Project{}, err
		}
		name = fmt.Sprintf("New Project %d", len(ps)+1)
	}
	np := model.NewProject{
		Name:      name,
		Tasks:     []model.Task{},
		CreatedAt: model.FormatTimestamp(now),
	}
	id, err := st.CreateProject(ctx, np)
	if err != nil {
		return model.Project{}, fmt.Errorf("create project: %w", err)
	}
	return model.Project{ID: id, Name: np.Name, Tasks: np.Tasks, CreatedAt: np.CreatedAt}, nil
}

func newProjectsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			id := strings.TrimSpace(args[0])
			if err := st.DeleteProject(cmd.Context(), id); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return writeErr(cmd, errNotFound("project", id))
				}
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope(map[string]any{"id": id, "deleted": true}))
		},
	}
}

func newProjectsWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the project list every time it changes (until interrupted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			w := newSnapshotWriter(cmd, app)
			sub, err := st.WatchProjects(
				func(ps []model.Project) { w.write(envelope(ps)) },
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

func newProjectsPublishCmd(app *App) *cobra.Command {
	var to string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "publish <project-id>",
		Short: "Export a project as Markdown (to stdout, or <dir>/projects/<id>.md with --to)",
		Args:  cobra.ExactArgs(1),
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
			if strings.TrimSpace(to) == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), publish.RenderProjectMarkdown(p))
				return err
			}
			res, err := publish.WriteProject(p, to, publish.WriteOptions{Overwrite: overwrite})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope(res))
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Output directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

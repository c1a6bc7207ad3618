package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskdeck/internal/model"

	"github.com/charmbracelet/log"
)

// ProjectsCollection is the only collection the app reads and writes.
const ProjectsCollection = "projects"

var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidDocument = errors.New("invalid document")
	ErrClosed          = errors.New("store closed")
)

// Client is the document store as seen by the app: collection-level
// subscribe/create and document-level subscribe/update.
type Client interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	GetProject(ctx context.Context, id string) (model.Project, bool, error)
	CreateProject(ctx context.Context, p model.NewProject) (string, error)
	UpdateTasks(ctx context.Context, projectID string, upd TasksUpdate) error
	DeleteProject(ctx context.Context, id string) error

	// WatchProjects delivers the whole collection, in insertion order, once on
	// registration and again after every change. onError fires at most once;
	// no snapshots follow it.
	WatchProjects(onSnapshot func([]model.Project), onError func(error)) (Subscription, error)
	// WatchProject is WatchProjects for a single document. A snapshot with
	// Exists=false means the document was deleted (or never existed).
	WatchProject(id string, onSnapshot func(ProjectSnapshot), onError func(error)) (Subscription, error)

	Close() error
}

// Subscription is a live listener registration. Unsubscribe is idempotent and
// safe to call from inside the subscription's own callbacks.
type Subscription interface {
	Unsubscribe()
}

type ProjectSnapshot struct {
	ID      string        `json:"id"`
	Exists  bool          `json:"exists"`
	Project model.Project `json:"project"`
}

type UpdateOp string

const (
	// OpArrayUnion appends the task unless a structurally equal one is present.
	OpArrayUnion UpdateOp = "arrayUnion"
	// OpArrayRemove drops every task structurally equal to the given one.
	OpArrayRemove UpdateOp = "arrayRemove"
)

type TasksUpdate struct {
	Op   UpdateOp   `json:"op"`
	Task model.Task `json:"task"`
}

func ArrayUnion(t model.Task) TasksUpdate  { return TasksUpdate{Op: OpArrayUnion, Task: t} }
func ArrayRemove(t model.Task) TasksUpdate { return TasksUpdate{Op: OpArrayRemove, Task: t} }

func (u TasksUpdate) Validate() error {
	switch u.Op {
	case OpArrayUnion, OpArrayRemove:
		return nil
	default:
		return fmt.Errorf("%w: unknown tasks op %q", ErrInvalidDocument, u.Op)
	}
}

// ApplyTasksUpdate is the read-modify-write step behind both array operators.
// It returns a fresh slice (the input is never modified) and whether anything
// changed.
func ApplyTasksUpdate(tasks []model.Task, upd TasksUpdate) ([]model.Task, bool) {
	out := make([]model.Task, 0, len(tasks)+1)
	switch upd.Op {
	case OpArrayUnion:
		for _, t := range tasks {
			if t.Equal(upd.Task) {
				return append(out, tasks...), false
			}
		}
		out = append(out, tasks...)
		return append(out, upd.Task), true
	case OpArrayRemove:
		changed := false
		for _, t := range tasks {
			if t.Equal(upd.Task) {
				changed = true
				continue
			}
			out = append(out, t)
		}
		return out, changed
	default:
		return append(out, tasks...), false
	}
}

// Open connects to the backend named by cfg.Backend.
func Open(ctx context.Context, cfg StoreConfig, logger *log.Logger) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendSQLite:
		st, err := OpenSQLite(ctx, cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	case BackendRemote:
		rc, err := NewRemoteClient(cfg.Endpoint, cfg.APIKey, logger)
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (expected %s|%s)", cfg.Backend, BackendSQLite, BackendRemote)
	}
}

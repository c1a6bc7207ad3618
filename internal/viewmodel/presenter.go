// Package viewmodel holds the screen state for the project and task lists and
// turns user actions into store writes. State only ever changes in response to
// store snapshots; writes never touch it directly.
package viewmodel

import (
	"context"
	"errors"

	"taskdeck/internal/model"
	"taskdeck/internal/store"
)

type Route string

const (
	RouteProjects Route = "projects"
	RouteTasks    Route = "tasks"
)

// Alert is a one-shot, user-visible message.
type Alert struct {
	Title   string
	Message string
}

// Presenter is the UI side of a view-model. Methods may be called from any
// goroutine (store callbacks arrive on their own); view-models never hold
// their locks while calling them.
type Presenter interface {
	// Changed means State() may return something new.
	Changed()
	Alert(Alert)
	Navigate(Route)
}

var (
	ErrEmptyTaskName     = errors.New("task name is empty")
	ErrNoProjectSelected = errors.New("no project selected")
)

// ProjectStore is the part of store.Client the project list uses.
type ProjectStore interface {
	CreateProject(ctx context.Context, p model.NewProject) (string, error)
	WatchProjects(onSnapshot func([]model.Project), onError func(error)) (store.Subscription, error)
}

// TaskStore is the part of store.Client the task list uses.
type TaskStore interface {
	UpdateTasks(ctx context.Context, projectID string, upd store.TasksUpdate) error
	WatchProject(id string, onSnapshot func(store.ProjectSnapshot), onError func(error)) (store.Subscription, error)
}

const (
	alertTitleError          = "Error"
	alertTitleProjectDeleted = "Project Deleted"
)

var (
	alertLoadProjects   = Alert{Title: alertTitleError, Message: "Failed to load projects"}
	alertCreateProject  = Alert{Title: alertTitleError, Message: "Failed to create project"}
	alertProjectDeleted = Alert{Title: alertTitleProjectDeleted, Message: "The project you were viewing has been deleted."}
	alertLoadTasks      = Alert{Title: alertTitleError, Message: "Failed to load tasks"}
	alertEmptyTaskName  = Alert{Title: alertTitleError, Message: "Please enter a task name"}
	alertNoProject      = Alert{Title: alertTitleError, Message: "No project selected"}
	alertAddTask        = Alert{Title: alertTitleError, Message: "Failed to add task"}
	alertDeleteTask     = Alert{Title: alertTitleError, Message: "Failed to delete task"}
)

// IsProjectDeleted reports whether a is the alert raised when the project on
// the task screen disappears.
func (a Alert) IsProjectDeleted() bool { return a == alertProjectDeleted }

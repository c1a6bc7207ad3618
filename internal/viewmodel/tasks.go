package viewmodel

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"taskdeck/internal/model"
	"taskdeck/internal/selection"
	"taskdeck/internal/store"

	"github.com/charmbracelet/log"
)

// PendingDelete is a delete waiting for the user to confirm or cancel.
type PendingDelete struct {
	Task   model.Task
	Title  string
	Prompt string
}

type TaskListState struct {
	// NoProject is set when nothing is selected; nothing else is meaningful then.
	NoProject bool
	Loading   bool
	// Project is the selection snapshot, used for the header.
	Project       model.Project
	Tasks         []model.Task
	Draft         string
	PendingDelete *PendingDelete
}

// TaskList follows the selected project while focused. Losing focus releases
// the subscription; regaining it opens a new one.
type TaskList struct {
	store TaskStore
	sel   *selection.State
	ui    Presenter
	log   *log.Logger
	now   func() time.Time

	selCancel func()

	mu      sync.Mutex
	focused bool
	loading bool
	tasks   []model.Task
	draft   string
	pending *PendingDelete
	sub     store.Subscription
	gen     uint64
}

func NewTaskList(st TaskStore, sel *selection.State, ui Presenter, logger *log.Logger) *TaskList {
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	v := &TaskList{
		store: st,
		sel:   sel,
		ui:    ui,
		log:   logger.WithPrefix("tasks"),
		now:   time.Now,
		tasks: []model.Task{},
	}
	v.selCancel = sel.Subscribe(v.onSelectionChanged)
	return v
}

func (v *TaskList) State() TaskListState {
	p, ok := v.sel.Get()
	v.mu.Lock()
	defer v.mu.Unlock()
	st := TaskListState{
		NoProject: !ok,
		Project:   p,
		Draft:     v.draft,
	}
	if !ok {
		return st
	}
	st.Loading = v.loading
	st.Tasks = append([]model.Task{}, v.tasks...)
	if v.pending != nil {
		pd := *v.pending
		st.PendingDelete = &pd
	}
	return st
}

// Focus is called when the task screen comes to the foreground.
func (v *TaskList) Focus() {
	v.mu.Lock()
	v.focused = true
	v.mu.Unlock()
	v.resubscribe()
}

// Blur is called when the task screen leaves the foreground.
func (v *TaskList) Blur() {
	v.mu.Lock()
	v.focused = false
	v.stopLocked()
	v.gen++
	v.loading = false
	v.mu.Unlock()
}

// Close releases the subscription and stops following the selection.
func (v *TaskList) Close() {
	v.selCancel()
	v.Blur()
}

func (v *TaskList) onSelectionChanged(*model.Project) {
	v.mu.Lock()
	v.stopLocked()
	v.gen++
	v.tasks = []model.Task{}
	v.pending = nil
	v.loading = false
	focused := v.focused
	v.mu.Unlock()

	if focused {
		v.resubscribe()
		return
	}
	v.ui.Changed()
}

func (v *TaskList) resubscribe() {
	p, ok := v.sel.Get()

	v.mu.Lock()
	v.stopLocked()
	v.gen++
	gen := v.gen
	if !ok || !v.focused {
		v.loading = false
		v.mu.Unlock()
		v.ui.Changed()
		return
	}
	v.loading = true
	v.mu.Unlock()
	v.ui.Changed()

	sub, err := v.store.WatchProject(p.ID,
		func(snap store.ProjectSnapshot) { v.onSnapshot(gen, snap) },
		func(err error) { v.onError(gen, err) },
	)
	if err != nil {
		v.onError(gen, err)
		return
	}

	v.mu.Lock()
	if v.gen != gen {
		v.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	v.sub = sub
	v.mu.Unlock()
}

func (v *TaskList) stopLocked() {
	if v.sub != nil {
		v.sub.Unsubscribe()
		v.sub = nil
	}
}

func (v *TaskList) onSnapshot(gen uint64, snap store.ProjectSnapshot) {
	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return
	}
	if !snap.Exists {
		// Retire this subscription before anything else so repeated delete
		// echoes are dropped by the gen check above.
		v.stopLocked()
		v.gen++
		v.loading = false
		v.tasks = []model.Task{}
		v.pending = nil
		v.mu.Unlock()

		v.log.Warn("selected project was deleted", "project", snap.ID)
		v.ui.Alert(alertProjectDeleted)
		v.sel.Clear()
		v.ui.Navigate(RouteProjects)
		return
	}
	tasks := snap.Project.Tasks
	if tasks == nil {
		tasks = []model.Task{}
	}
	v.tasks = tasks
	v.loading = false
	v.mu.Unlock()
	v.ui.Changed()
}

func (v *TaskList) onError(gen uint64, err error) {
	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return
	}
	v.stopLocked()
	v.loading = false
	v.mu.Unlock()

	v.log.Error("tasks subscription failed", "err", err)
	v.ui.Alert(alertLoadTasks)
	v.ui.Changed()
}

func (v *TaskList) SetDraft(s string) {
	v.mu.Lock()
	v.draft = s
	v.mu.Unlock()
}

// SubmitDraft adds the draft as a task.
func (v *TaskList) SubmitDraft(ctx context.Context) error {
	v.mu.Lock()
	draft := v.draft
	v.mu.Unlock()
	return v.AddTask(ctx, draft)
}

// AddTask appends a task named strings.TrimSpace(name) to the selected
// project. Validation failures alert and return before anything is written.
func (v *TaskList) AddTask(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		v.ui.Alert(alertEmptyTaskName)
		return ErrEmptyTaskName
	}
	p, ok := v.sel.Get()
	if !ok {
		v.ui.Alert(alertNoProject)
		return ErrNoProjectSelected
	}

	task := model.NewTask(name, v.now())
	if err := v.store.UpdateTasks(ctx, p.ID, store.ArrayUnion(task)); err != nil {
		v.log.Error("add task", "project", p.ID, "err", err)
		v.ui.Alert(alertAddTask)
		return fmt.Errorf("add task: %w", err)
	}

	v.mu.Lock()
	v.draft = ""
	v.mu.Unlock()
	v.ui.Changed()
	return nil
}

// DeleteTask asks for confirmation; nothing is written until ConfirmDelete.
func (v *TaskList) DeleteTask(task model.Task) {
	v.mu.Lock()
	v.pending = &PendingDelete{
		Task:   task,
		Title:  "Delete Task",
		Prompt: `Are you sure you want to delete "` + task.Name + `"?`,
	}
	v.mu.Unlock()
	v.ui.Changed()
}

func (v *TaskList) CancelDelete() {
	v.mu.Lock()
	had := v.pending != nil
	v.pending = nil
	v.mu.Unlock()
	if had {
		v.ui.Changed()
	}
}

// ConfirmDelete removes the pending task record, matched on every field.
func (v *TaskList) ConfirmDelete(ctx context.Context) error {
	v.mu.Lock()
	pd := v.pending
	v.pending = nil
	v.mu.Unlock()
	if pd == nil {
		return nil
	}
	v.ui.Changed()

	p, ok := v.sel.Get()
	if !ok {
		v.ui.Alert(alertNoProject)
		return ErrNoProjectSelected
	}
	if err := v.store.UpdateTasks(ctx, p.ID, store.ArrayRemove(pd.Task)); err != nil {
		v.log.Error("delete task", "project", p.ID, "task", pd.Task.ID, "err", err)
		v.ui.Alert(alertDeleteTask)
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

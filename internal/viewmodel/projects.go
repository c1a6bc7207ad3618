package viewmodel

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"taskdeck/internal/model"
	"taskdeck/internal/selection"
	"taskdeck/internal/store"

	"github.com/charmbracelet/log"
)

type ProjectListState struct {
	Loading  bool
	Projects []model.Project
	// SelectedID is the currently selected project ("" when none).
	SelectedID string
}

// Empty is the "no projects" state, distinct from still loading.
func (s ProjectListState) Empty() bool {
	return !s.Loading && len(s.Projects) == 0
}

type ProjectList struct {
	store ProjectStore
	sel   *selection.State
	ui    Presenter
	log   *log.Logger
	now   func() time.Time

	mu       sync.Mutex
	loading  bool
	projects []model.Project
	sub      store.Subscription
	// gen identifies the live subscription; callbacks carrying an older gen
	// are ignored.
	gen uint64
}

func NewProjectList(st ProjectStore, sel *selection.State, ui Presenter, logger *log.Logger) *ProjectList {
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &ProjectList{
		store:    st,
		sel:      sel,
		ui:       ui,
		log:      logger.WithPrefix("projects"),
		now:      time.Now,
		loading:  true,
		projects: []model.Project{},
	}
}

func (v *ProjectList) State() ProjectListState {
	st := ProjectListState{}
	if p, ok := v.sel.Get(); ok {
		st.SelectedID = p.ID
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	st.Loading = v.loading
	st.Projects = append([]model.Project{}, v.projects...)
	return st
}

// Subscribe opens the live collection subscription, replacing any previous
// one. The returned func releases it and is safe to call more than once.
func (v *ProjectList) Subscribe() (unsubscribe func()) {
	v.mu.Lock()
	v.stopLocked()
	v.gen++
	gen := v.gen
	v.loading = true
	v.mu.Unlock()
	v.ui.Changed()

	sub, err := v.store.WatchProjects(
		func(ps []model.Project) { v.onSnapshot(gen, ps) },
		func(err error) { v.onError(gen, err) },
	)
	if err != nil {
		v.onError(gen, err)
		return func() {}
	}

	v.mu.Lock()
	if v.gen != gen {
		v.mu.Unlock()
		sub.Unsubscribe()
		return func() {}
	}
	v.sub = sub
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			if v.gen == gen {
				v.stopLocked()
				v.gen++
			}
		})
	}
}

func (v *ProjectList) stopLocked() {
	if v.sub != nil {
		v.sub.Unsubscribe()
		v.sub = nil
	}
}

func (v *ProjectList) onSnapshot(gen uint64, ps []model.Project) {
	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return
	}
	if ps == nil {
		ps = []model.Project{}
	}
	v.projects = ps
	v.loading = false
	v.mu.Unlock()
	v.ui.Changed()
}

func (v *ProjectList) onError(gen uint64, err error) {
	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return
	}
	v.stopLocked()
	v.loading = false
	v.mu.Unlock()

	v.log.Error("projects subscription failed", "err", err)
	v.ui.Alert(alertLoadProjects)
	v.ui.Changed()
}

// CreateProject writes "New Project N+1" where N is the number of projects
// currently shown. The new project shows up through the subscription.
func (v *ProjectList) CreateProject(ctx context.Context) error {
	v.mu.Lock()
	n := len(v.projects)
	v.mu.Unlock()

	np := model.NewProject{
		Name:      fmt.Sprintf("New Project %d", n+1),
		Tasks:     []model.Task{},
		CreatedAt: model.FormatTimestamp(v.now()),
	}
	id, err := v.store.CreateProject(ctx, np)
	if err != nil {
		v.log.Error("create project", "name", np.Name, "err", err)
		v.ui.Alert(alertCreateProject)
		return fmt.Errorf("create project: %w", err)
	}
	v.log.Debug("project created", "id", id, "name", np.Name)
	return nil
}

// SelectProject makes p the current project and moves to the task screen.
func (v *ProjectList) SelectProject(p model.Project) {
	v.sel.Set(p)
	v.ui.Navigate(RouteTasks)
}

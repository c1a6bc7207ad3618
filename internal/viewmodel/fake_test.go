package viewmodel

import (
	"context"
	"io"
	"sync"
	"time"

	"taskdeck/internal/model"
	"taskdeck/internal/store"

	"github.com/charmbracelet/log"
)

var testNow = time.Date(2024, 3, 4, 5, 6, 7, 8e6, time.UTC)

func quietLogger() *log.Logger { return log.New(io.Discard) }

type fakeSub struct {
	id         string
	onProjects func([]model.Project)
	onDoc      func(store.ProjectSnapshot)
	onError    func(error)

	mu      sync.Mutex
	stopped bool
}

func (s *fakeSub) Unsubscribe() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

func (s *fakeSub) live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

type tasksCall struct {
	projectID string
	upd       store.TasksUpdate
}

// fakeStore records writes and hands subscriptions to the test, which then
// drives snapshots by hand.
type fakeStore struct {
	mu        sync.Mutex
	creates   []model.NewProject
	updates   []tasksCall
	createErr error
	updateErr error
	watchErr  error
	subs      []*fakeSub
}

func (f *fakeStore) CreateProject(_ context.Context, p model.NewProject) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.creates = append(f.creates, p)
	return "new-id", nil
}

func (f *fakeStore) UpdateTasks(_ context.Context, projectID string, upd store.TasksUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, tasksCall{projectID: projectID, upd: upd})
	return nil
}

func (f *fakeStore) WatchProjects(onSnapshot func([]model.Project), onError func(error)) (store.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	s := &fakeSub{onProjects: onSnapshot, onError: onError}
	f.subs = append(f.subs, s)
	return s, nil
}

func (f *fakeStore) WatchProject(id string, onSnapshot func(store.ProjectSnapshot), onError func(error)) (store.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	s := &fakeSub{id: id, onDoc: onSnapshot, onError: onError}
	f.subs = append(f.subs, s)
	return s, nil
}

func (f *fakeStore) lastSub() *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) == 0 {
		return nil
	}
	return f.subs[len(f.subs)-1]
}

func (f *fakeStore) liveSubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subs {
		if s.live() {
			n++
		}
	}
	return n
}

func (f *fakeStore) updateCalls() []tasksCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tasksCall(nil), f.updates...)
}

type recorder struct {
	mu      sync.Mutex
	changed int
	alerts  []Alert
	routes  []Route
}

func (r *recorder) Changed() {
	r.mu.Lock()
	r.changed++
	r.mu.Unlock()
}

func (r *recorder) Alert(a Alert) {
	r.mu.Lock()
	r.alerts = append(r.alerts, a)
	r.mu.Unlock()
}

func (r *recorder) Navigate(to Route) {
	r.mu.Lock()
	r.routes = append(r.routes, to)
	r.mu.Unlock()
}

func (r *recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}

func (r *recorder) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Route(nil), r.routes...)
}

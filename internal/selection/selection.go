// Package selection holds the one project the user is currently working in.
package selection

import (
	"sync"

	"taskdeck/internal/model"
)

// State is a single mutable cell shared by the views. The project stored is a
// snapshot taken at selection time; it is not kept in sync with the store.
type State struct {
	mu        sync.Mutex
	current   *model.Project
	nextID    int
	observers []observer
}

type observer struct {
	id int
	fn func(*model.Project)
}

func New() *State { return &State{} }

func (s *State) Get() (model.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return model.Project{}, false
	}
	return s.current.Clone(), true
}

// Set replaces the selection. Last writer wins.
func (s *State) Set(p model.Project) {
	cp := p.Clone()
	s.update(&cp)
}

func (s *State) Clear() { s.update(nil) }

func (s *State) update(p *model.Project) {
	s.mu.Lock()
	s.current = p
	obs := append([]observer(nil), s.observers...)
	s.mu.Unlock()

	for _, o := range obs {
		if p == nil {
			o.fn(nil)
			continue
		}
		cp := p.Clone()
		o.fn(&cp)
	}
}

// Subscribe registers fn to run after every Set/Clear, in registration order,
// on the goroutine that changed the selection. The returned func removes it.
func (s *State) Subscribe(fn func(*model.Project)) (cancel func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, observer{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, o := range s.observers {
				if o.id == id {
					s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
					return
				}
			}
		})
	}
}

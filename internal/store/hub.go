package store

import (
	"sync"

	"taskdeck/internal/model"
)

// delivery is one queued callback invocation for a watcher.
type delivery struct {
	projects []model.Project
	doc      *ProjectSnapshot
	err      error
}

// watcher owns one subscription's callbacks. Deliveries are queued without
// bound and run one at a time on the watcher's goroutine, so a slow consumer
// never reorders or drops snapshots and never blocks the writer.
type watcher struct {
	onProjects func([]model.Project)
	onDoc      func(ProjectSnapshot)
	onError    func(error)

	mu      sync.Mutex
	pending []delivery
	failed  bool

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	onStop   func()
}

func newWatcher() *watcher {
	w := &watcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *watcher) push(d delivery) {
	w.mu.Lock()
	if w.failed {
		w.mu.Unlock()
		return
	}
	if d.err != nil {
		w.failed = true
	}
	w.pending = append(w.pending, d)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case <-w.wake:
		}
		for {
			w.mu.Lock()
			if len(w.pending) == 0 {
				w.mu.Unlock()
				break
			}
			d := w.pending[0]
			w.pending = w.pending[1:]
			w.mu.Unlock()

			select {
			case <-w.done:
				return
			default:
			}
			w.deliver(d)
			if d.err != nil {
				return
			}
		}
	}
}

func (w *watcher) deliver(d delivery) {
	switch {
	case d.err != nil:
		if w.onError != nil {
			w.onError(d.err)
		}
	case d.doc != nil:
		if w.onDoc != nil {
			w.onDoc(*d.doc)
		}
	default:
		if w.onProjects != nil {
			w.onProjects(d.projects)
		}
	}
}

// Unsubscribe stops delivery. It never waits for the delivery goroutine, so
// callbacks may call it on their own watcher.
func (w *watcher) Unsubscribe() {
	w.stopOnce.Do(func() {
		close(w.done)
		if w.onStop != nil {
			w.onStop()
		}
	})
}

// hub indexes live watchers by what they observe.
type hub struct {
	mu         sync.Mutex
	collection map[*watcher]struct{}
	docs       map[string]map[*watcher]struct{}
}

func newHub() *hub {
	return &hub{
		collection: map[*watcher]struct{}{},
		docs:       map[string]map[*watcher]struct{}{},
	}
}

func (h *hub) addCollection(w *watcher) {
	w.onStop = func() {
		h.mu.Lock()
		delete(h.collection, w)
		h.mu.Unlock()
	}
	h.mu.Lock()
	h.collection[w] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) addDoc(id string, w *watcher) {
	w.onStop = func() {
		h.mu.Lock()
		if set := h.docs[id]; set != nil {
			delete(set, w)
			if len(set) == 0 {
				delete(h.docs, id)
			}
		}
		h.mu.Unlock()
	}
	h.mu.Lock()
	set := h.docs[id]
	if set == nil {
		set = map[*watcher]struct{}{}
		h.docs[id] = set
	}
	set[w] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) hasDocWatchers(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.docs[id]) > 0
}

func (h *hub) hasCollectionWatchers() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.collection) > 0
}

func (h *hub) publishCollection(projects []model.Project) {
	for _, w := range h.collectionWatchers() {
		w.push(delivery{projects: cloneProjects(projects)})
	}
}

func (h *hub) publishDoc(snap ProjectSnapshot) {
	for _, w := range h.docWatchers(snap.ID) {
		s := snap
		s.Project = snap.Project.Clone()
		w.push(delivery{doc: &s})
	}
}

func (h *hub) collectionWatchers() []*watcher {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*watcher, 0, len(h.collection))
	for w := range h.collection {
		out = append(out, w)
	}
	return out
}

func (h *hub) docWatchers(id string) []*watcher {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*watcher, 0, len(h.docs[id]))
	for w := range h.docs[id] {
		out = append(out, w)
	}
	return out
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.collection)
	for _, set := range h.docs {
		n += len(set)
	}
	return n
}

func cloneProjects(ps []model.Project) []model.Project {
	out := make([]model.Project, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Clone())
	}
	return out
}

// stopAll unsubscribes every watcher without calling its error handler.
func (h *hub) stopAll() {
	h.mu.Lock()
	var all []*watcher
	for w := range h.collection {
		all = append(all, w)
	}
	for _, set := range h.docs {
		for w := range set {
			all = append(all, w)
		}
	}
	h.mu.Unlock()

	for _, w := range all {
		w.Unsubscribe()
	}
}

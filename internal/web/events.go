package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"taskdeck/internal/model"
	"taskdeck/internal/store"

	"github.com/starfederation/datastar-go/datastar"
)

const keepAliveEvery = 25 * time.Second

// latest keeps only the newest value; SSE clients only need current state.
type latest[T any] struct {
	mu    sync.Mutex
	val   T
	ready bool
	err   error
	ch    chan struct{}
}

func newLatest[T any]() *latest[T] {
	return &latest[T]{ch: make(chan struct{}, 1)}
}

func (l *latest[T]) set(v T) {
	l.mu.Lock()
	l.val, l.ready = v, true
	l.mu.Unlock()
	l.notify()
}

func (l *latest[T]) fail(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
	l.notify()
}

func (l *latest[T]) notify() {
	select {
	case l.ch <- struct{}{}:
	default:
	}
}

func (l *latest[T]) take() (T, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.val, l.ready
	l.ready = false
	return v, ok, l.err
}

func projectsSignals(ps []model.Project) map[string]any {
	tasks := 0
	for _, p := range ps {
		tasks += len(p.Tasks)
	}
	return map[string]any{
		"projects":  ps,
		"count":     len(ps),
		"taskCount": tasks,
	}
}

func projectSignals(snap store.ProjectSnapshot) map[string]any {
	return map[string]any{
		"id":      snap.ID,
		"exists":  snap.Exists,
		"project": snap.Project,
	}
}

// serveSignals streams every snapshot of l as a datastar signal patch until
// the client leaves or the subscription fails.
func serveSignals[T any](s *Server, w http.ResponseWriter, r *http.Request, l *latest[T], sub store.Subscription, render func(T) (map[string]any, error)) {
	defer sub.Unsubscribe()
	sse := datastar.NewSSE(w, r)

	keepAlive := time.NewTicker(keepAliveEvery)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case <-l.ch:
			v, ok, err := l.take()
			if ok {
				sig, rerr := render(v)
				if rerr != nil {
					_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, rerr.Error()))
				} else if err := sse.MarshalAndPatchSignals(sig); err != nil {
					return
				}
			}
			if err != nil {
				s.log.Warn("event stream subscription failed", "path", r.URL.Path, "err", err)
				_ = sse.MarshalAndPatchSignals(map[string]any{"error": err.Error()})
				return
			}
		}
	}
}

func (s *Server) handleProjectsEvents(w http.ResponseWriter, r *http.Request) {
	l := newLatest[[]model.Project]()
	sub, err := s.store.WatchProjects(l.set, l.fail)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	serveSignals(s, w, r, l, sub, func(ps []model.Project) (map[string]any, error) {
		return projectsSignals(ps), nil
	})
}

func (s *Server) handleProjectEvents(w http.ResponseWriter, r *http.Request) {
	id, err := projectIDFromPath(r)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	l := newLatest[store.ProjectSnapshot]()
	sub, err := s.store.WatchProject(id, l.set, l.fail)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	serveSignals(s, w, r, l, sub, func(snap store.ProjectSnapshot) (map[string]any, error) {
		return projectSignals(snap), nil
	})
}

type homeVM struct {
	Now       string
	StreamURL string
	Projects  []model.Project
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) streamURL(r *http.Request, path string) string {
	if key := strings.TrimSpace(r.URL.Query().Get("key")); key != "" {
		return path + "?key=" + url.QueryEscape(key)
	}
	return path
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ps, err := s.store.ListProjects(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	html, err := s.renderTemplate("index.html", homeVM{
		Now:       time.Now().Format(time.RFC3339),
		StreamURL: s.streamURL(r, "/events"),
		Projects:  ps,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// handleHomeEvents re-renders the dashboard's project list on every change.
func (s *Server) handleHomeEvents(w http.ResponseWriter, r *http.Request) {
	l := newLatest[[]model.Project]()
	sub, err := s.store.WatchProjects(l.set, l.fail)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	defer sub.Unsubscribe()

	sse := datastar.NewSSE(w, r)
	keepAlive := time.NewTicker(keepAliveEvery)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case <-l.ch:
			ps, ok, err := l.take()
			if ok {
				html, rerr := s.renderTemplate("projects", homeVM{Projects: ps})
				if rerr != nil {
					_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, rerr.Error()))
					continue
				}
				if err := sse.PatchElements(html, datastar.WithSelector("#projects"), datastar.WithMode(datastar.ElementPatchModeOuter)); err != nil {
					return
				}
				_ = sse.MarshalAndPatchSignals(map[string]any{"count": len(ps)})
			}
			if err != nil {
				return
			}
		}
	}
}

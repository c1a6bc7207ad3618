package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"taskdeck/internal/model"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// RemoteClient talks to a taskdeck store server (see internal/web). Reads and
// writes are plain HTTP; every subscription is multiplexed over one websocket
// that is dialed on first use. When that websocket drops, every live
// subscription gets its error handler called once; nothing is re-dialed until
// the next Watch call.
type RemoteClient struct {
	base   *url.URL
	apiKey string
	http   *http.Client
	dialer *websocket.Dialer
	log    *log.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	subs   map[string]*watcher
	closed bool

	writeMu sync.Mutex
}

type envelope[T any] struct {
	Data T `json:"data"`
}

func NewRemoteClient(endpoint, apiKey string, logger *log.Logger) (*RemoteClient, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("remote store: endpoint is empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("remote store: invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote store: endpoint must be http(s): %s", endpoint)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &RemoteClient{
		base:   u,
		apiKey: strings.TrimSpace(apiKey),
		http:   &http.Client{Timeout: 30 * time.Second},
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:    logger.WithPrefix("remote"),
		subs:   map[string]*watcher{},
	}, nil
}

func (c *RemoteClient) endpoint(path string) string {
	u := *c.base
	u.Path = c.base.Path + path
	return u.String()
}

func (c *RemoteClient) authHeader() http.Header {
	h := http.Header{}
	if c.apiKey != "" {
		h.Set("Authorization", "Bearer "+c.apiKey)
	}
	return h
}

func (c *RemoteClient) do(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), rd)
	if err != nil {
		return err
	}
	req.Header = c.authHeader()
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var er ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&er)
		return errorFromResponse(resp.StatusCode, er)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *RemoteClient) ListProjects(ctx context.Context) ([]model.Project, error) {
	var out envelope[[]model.Project]
	if err := c.do(ctx, http.MethodGet, "/v1/projects", nil, &out); err != nil {
		return nil, err
	}
	return normalizeProjects(out.Data), nil
}

func (c *RemoteClient) GetProject(ctx context.Context, id string) (model.Project, bool, error) {
	var out envelope[model.Project]
	err := c.do(ctx, http.MethodGet, "/v1/projects/"+url.PathEscape(id), nil, &out)
	if errors.Is(err, ErrNotFound) {
		return model.Project{}, false, nil
	}
	if err != nil {
		return model.Project{}, false, err
	}
	return out.Data.Normalize(), true, nil
}

func (c *RemoteClient) CreateProject(ctx context.Context, p model.NewProject) (string, error) {
	if p.Tasks == nil {
		p.Tasks = []model.Task{}
	}
	var out envelope[CreateProjectResponse]
	if err := c.do(ctx, http.MethodPost, "/v1/projects", p, &out); err != nil {
		return "", err
	}
	return out.Data.ID, nil
}

func (c *RemoteClient) UpdateTasks(ctx context.Context, projectID string, upd TasksUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPatch, "/v1/projects/"+url.PathEscape(projectID)+"/tasks", upd, nil)
}

func (c *RemoteClient) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/projects/"+url.PathEscape(id), nil, nil)
}

func (c *RemoteClient) WatchProjects(onSnapshot func([]model.Project), onError func(error)) (Subscription, error) {
	w := newWatcher()
	w.onProjects = onSnapshot
	w.onError = onError
	return c.watch(ClientFrame{Type: FrameSubscribe, Target: TargetProjects}, w)
}

func (c *RemoteClient) WatchProject(id string, onSnapshot func(ProjectSnapshot), onError func(error)) (Subscription, error) {
	w := newWatcher()
	w.onDoc = onSnapshot
	w.onError = onError
	return c.watch(ClientFrame{Type: FrameSubscribe, Target: TargetProject, ID: id}, w)
}

func (c *RemoteClient) watch(frame ClientFrame, w *watcher) (Subscription, error) {
	if _, err := c.ensureConn(); err != nil {
		w.Unsubscribe()
		return nil, err
	}

	subID := uuid.NewString()
	frame.SubID = subID

	c.mu.Lock()
	c.subs[subID] = w
	c.mu.Unlock()
	w.onStop = func() {
		c.mu.Lock()
		_, live := c.subs[subID]
		delete(c.subs, subID)
		c.mu.Unlock()
		if live {
			if err := c.send(ClientFrame{Type: FrameUnsubscribe, SubID: subID}); err != nil {
				c.log.Debug("unsubscribe", "sub", subID, "err", err)
			}
		}
	}

	if err := c.send(frame); err != nil {
		w.Unsubscribe()
		return nil, err
	}
	return w, nil
}

func (c *RemoteClient) ensureConn() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.conn != nil {
		return c.conn, nil
	}

	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = c.base.Path + "/v1/watch"

	conn, resp, err := c.dialer.Dial(u.String(), c.authHeader())
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial watch: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial watch: %w", err)
	}
	c.conn = conn
	go c.readLoop(conn)
	return conn, nil
}

func (c *RemoteClient) send(frame ClientFrame) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("watch connection is not open")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(frame)
}

func (c *RemoteClient) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.dropConn(conn, err)
			return
		}
		var f ServerFrame
		if err := json.Unmarshal(data, &f); err != nil {
			c.log.Warn("bad frame from server", "err", err)
			continue
		}

		c.mu.Lock()
		w := c.subs[f.SubID]
		if f.Type == FrameError {
			delete(c.subs, f.SubID)
		}
		c.mu.Unlock()
		if w == nil {
			continue
		}

		switch f.Type {
		case FrameSnapshot:
			if f.Doc != nil {
				snap := *f.Doc
				snap.Project = snap.Project.Normalize()
				w.push(delivery{doc: &snap})
			} else {
				w.push(delivery{projects: normalizeProjects(f.Projects)})
			}
		case FrameError:
			w.push(delivery{err: fmt.Errorf("watch: %s", f.Error)})
		}
	}
}

func (c *RemoteClient) dropConn(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	closed := c.closed
	subs := c.subs
	c.subs = map[string]*watcher{}
	c.mu.Unlock()
	_ = conn.Close()

	if closed {
		return
	}
	if len(subs) > 0 {
		c.log.Warn("watch connection lost", "err", cause, "subscriptions", len(subs))
	}
	for _, w := range subs {
		w.push(delivery{err: fmt.Errorf("watch connection lost: %w", cause)})
	}
}

// ActiveSubscriptions reports how many subscriptions are registered.
func (c *RemoteClient) ActiveSubscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *RemoteClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	subs := c.subs
	c.subs = map[string]*watcher{}
	c.mu.Unlock()

	for _, w := range subs {
		w.Unsubscribe()
	}
	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return conn.Close()
}

func normalizeProjects(ps []model.Project) []model.Project {
	out := make([]model.Project, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Normalize())
	}
	return out
}

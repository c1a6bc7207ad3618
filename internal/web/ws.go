package web

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"taskdeck/internal/model"
	"taskdeck/internal/store"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	},
}

// watchSession is one /v1/watch websocket and the store subscriptions it
// carries, keyed by the client's subId.
type watchSession struct {
	srv  *Server
	conn *websocket.Conn

	writeMu sync.Mutex

	mu     sync.Mutex
	subs   map[string]store.Subscription
	closed bool
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	ws := &watchSession{srv: s, conn: conn, subs: map[string]store.Subscription{}}
	s.mu.Lock()
	s.conns[ws] = struct{}{}
	s.mu.Unlock()
	s.log.Debug("watch session opened", "remote", r.RemoteAddr)

	ws.readLoop()

	s.mu.Lock()
	delete(s.conns, ws)
	s.mu.Unlock()
	ws.close()
	s.log.Debug("watch session closed", "remote", r.RemoteAddr)
}

func (s *Server) closeWatchSessions() {
	s.mu.Lock()
	var all []*watchSession
	for ws := range s.conns {
		all = append(all, ws)
	}
	s.mu.Unlock()
	for _, ws := range all {
		ws.close()
	}
}

// WatchSessions reports how many watch websockets are open.
func (s *Server) WatchSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (ws *watchSession) readLoop() {
	for {
		_, data, err := ws.conn.ReadMessage()
		if err != nil {
			return
		}
		var f store.ClientFrame
		if err := json.Unmarshal(data, &f); err != nil {
			ws.send(store.ServerFrame{Type: store.FrameError, Error: "bad frame: " + err.Error()})
			continue
		}
		switch f.Type {
		case store.FrameSubscribe:
			ws.subscribe(f)
		case store.FrameUnsubscribe:
			ws.unsubscribe(f.SubID)
		default:
			ws.send(store.ServerFrame{Type: store.FrameError, SubID: f.SubID, Error: "unknown frame type: " + f.Type})
		}
	}
}

func (ws *watchSession) subscribe(f store.ClientFrame) {
	subID := strings.TrimSpace(f.SubID)
	if subID == "" {
		ws.send(store.ServerFrame{Type: store.FrameError, Error: "subscribe: missing subId"})
		return
	}
	// Reusing a subId replaces the old subscription.
	ws.unsubscribe(subID)

	onError := func(err error) {
		ws.forget(subID)
		ws.send(store.ServerFrame{Type: store.FrameError, SubID: subID, Error: err.Error()})
	}

	var (
		sub store.Subscription
		err error
	)
	switch f.Target {
	case store.TargetProjects:
		sub, err = ws.srv.store.WatchProjects(func(ps []model.Project) {
			ws.send(store.ServerFrame{Type: store.FrameSnapshot, SubID: subID, Projects: ps})
		}, onError)
	case store.TargetProject:
		id := strings.TrimSpace(f.ID)
		if id == "" {
			ws.send(store.ServerFrame{Type: store.FrameError, SubID: subID, Error: "subscribe: missing id"})
			return
		}
		sub, err = ws.srv.store.WatchProject(id, func(snap store.ProjectSnapshot) {
			ws.send(store.ServerFrame{Type: store.FrameSnapshot, SubID: subID, Doc: &snap})
		}, onError)
	default:
		ws.send(store.ServerFrame{Type: store.FrameError, SubID: subID, Error: "subscribe: unknown target " + string(f.Target)})
		return
	}
	if err != nil {
		ws.send(store.ServerFrame{Type: store.FrameError, SubID: subID, Error: err.Error()})
		return
	}

	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	ws.subs[subID] = sub
	ws.mu.Unlock()
}

func (ws *watchSession) unsubscribe(subID string) {
	ws.mu.Lock()
	sub := ws.subs[subID]
	delete(ws.subs, subID)
	ws.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

func (ws *watchSession) forget(subID string) {
	ws.mu.Lock()
	delete(ws.subs, subID)
	ws.mu.Unlock()
}

func (ws *watchSession) send(f store.ServerFrame) {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	_ = ws.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := ws.conn.WriteJSON(f); err != nil {
		ws.srv.log.Debug("watch write failed", "sub", f.SubID, "err", err)
		// Unblocks readLoop, which tears the session down.
		_ = ws.conn.Close()
	}
}

func (ws *watchSession) close() {
	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		return
	}
	ws.closed = true
	subs := ws.subs
	ws.subs = map[string]store.Subscription{}
	ws.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	_ = ws.conn.Close()
}

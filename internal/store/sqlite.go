package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"taskdeck/internal/model"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"
)

const (
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
)

// publishTimeout bounds the snapshot re-read that follows a committed write.
const publishTimeout = 5 * time.Second

// SQLiteStore is the document store backed by a local SQLite file. Live
// subscriptions are served from an in-process hub, so they observe writes made
// through this SQLiteStore (and through a web.Server wrapping it), not writes
// made by other processes opening the same file.
type SQLiteStore struct {
	path string
	db   *sql.DB
	log  *log.Logger
	hub  *hub
	now  func() time.Time

	// writeMu orders commit+publish so watchers see snapshots in commit order.
	writeMu sync.Mutex
	closed  atomic.Bool
}

func OpenSQLite(ctx context.Context, path string, logger *log.Logger) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite store: path is empty")
	}
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateDocuments(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{
		path: path,
		db:   db,
		log:  logger.WithPrefix("store"),
		hub:  newHub(),
		now:  time.Now,
	}, nil
}

func migrateDocuments(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			json TEXT NOT NULL,
			created_at_unixms INTEGER NOT NULL,
			updated_at_unixms INTEGER NOT NULL,
			PRIMARY KEY (collection, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_seq ON documents(collection, seq);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]model.Project, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.listProjects(ctx)
}

func (s *SQLiteStore) listProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, json FROM documents WHERE collection = ? ORDER BY seq`, ProjectsCollection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Project{}
	for rows.Next() {
		var id, js string
		if err := rows.Scan(&id, &js); err != nil {
			return nil, err
		}
		p, err := decodeProject(id, js)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (model.Project, bool, error) {
	if s.closed.Load() {
		return model.Project{}, false, ErrClosed
	}
	return s.getProject(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) getProject(ctx context.Context, q queryRower, id string) (model.Project, bool, error) {
	var js string
	err := q.QueryRowContext(ctx, `SELECT json FROM documents WHERE collection = ? AND id = ?`, ProjectsCollection, id).Scan(&js)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, false, nil
	}
	if err != nil {
		return model.Project{}, false, err
	}
	p, err := decodeProject(id, js)
	if err != nil {
		return model.Project{}, false, err
	}
	return p, true, nil
}

func decodeProject(id, js string) (model.Project, error) {
	var p model.Project
	if err := json.Unmarshal([]byte(js), &p); err != nil {
		return model.Project{}, fmt.Errorf("decode project %s: %w", id, err)
	}
	p.ID = id
	return p.Normalize(), nil
}

func (s *SQLiteStore) CreateProject(ctx context.Context, np model.NewProject) (string, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}
	if np.Tasks == nil {
		np.Tasks = []model.Task{}
	}
	if err := validateProjectDocument(np); err != nil {
		return "", err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.now()
	id, err := newDocumentID(now)
	if err != nil {
		return "", err
	}
	p := model.Project{ID: id, Name: np.Name, Tasks: np.Tasks, CreatedAt: np.CreatedAt}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM documents WHERE collection = ?`, ProjectsCollection).Scan(&seq); err != nil {
		return "", err
	}
	nowMs := now.UTC().UnixMilli()
	if _, err := tx.ExecContext(ctx, `INSERT INTO documents(collection, id, seq, json, created_at_unixms, updated_at_unixms) VALUES(?, ?, ?, ?, ?, ?)`,
		ProjectsCollection, id, seq, string(raw), nowMs, nowMs); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}

	s.log.Debug("project created", "id", id, "name", p.Name)
	s.publish(ctx, id)
	return id, nil
}

func (s *SQLiteStore) UpdateTasks(ctx context.Context, projectID string, upd TasksUpdate) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := upd.Validate(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	p, ok, err := s.getProject(ctx, tx, projectID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}

	tasks, changed := ApplyTasksUpdate(p.Tasks, upd)
	if !changed {
		return nil
	}
	p.Tasks = tasks
	if err := validateProjectDocument(p); err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE documents SET json = ?, updated_at_unixms = ? WHERE collection = ? AND id = ?`,
		string(raw), s.now().UTC().UnixMilli(), ProjectsCollection, projectID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.log.Debug("tasks updated", "project", projectID, "op", upd.Op, "task", upd.Task.ID)
	s.publish(ctx, projectID)
	return nil
}

func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, ProjectsCollection, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}

	s.log.Debug("project deleted", "id", id)
	s.publish(ctx, id)
	return nil
}

// publish pushes fresh snapshots to watchers of the collection and of id.
// The write has already committed, so the re-read ignores the caller's
// cancellation. Callers hold writeMu.
func (s *SQLiteStore) publish(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if s.hub.hasCollectionWatchers() {
		ps, err := s.listProjects(ctx)
		if err != nil {
			s.log.Error("list projects for watchers", "err", err)
		} else {
			s.hub.publishCollection(ps)
		}
	}
	if s.hub.hasDocWatchers(id) {
		p, ok, err := s.getProject(ctx, s.db, id)
		if err != nil {
			s.log.Error("get project for watchers", "id", id, "err", err)
			return
		}
		s.hub.publishDoc(ProjectSnapshot{ID: id, Exists: ok, Project: p})
	}
}

func (s *SQLiteStore) WatchProjects(onSnapshot func([]model.Project), onError func(error)) (Subscription, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ps, err := s.listProjects(context.Background())
	if err != nil {
		return nil, err
	}
	w := newWatcher()
	w.onProjects = onSnapshot
	w.onError = onError
	s.hub.addCollection(w)
	w.push(delivery{projects: ps})
	return w, nil
}

func (s *SQLiteStore) WatchProject(id string, onSnapshot func(ProjectSnapshot), onError func(error)) (Subscription, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	p, ok, err := s.getProject(context.Background(), s.db, id)
	if err != nil {
		return nil, err
	}
	w := newWatcher()
	w.onDoc = onSnapshot
	w.onError = onError
	s.hub.addDoc(id, w)
	w.push(delivery{doc: &ProjectSnapshot{ID: id, Exists: ok, Project: p}})
	return w, nil
}

// ActiveSubscriptions reports how many watchers are registered.
func (s *SQLiteStore) ActiveSubscriptions() int { return s.hub.count() }

func (s *SQLiteStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.hub.stopAll()
	return s.db.Close()
}

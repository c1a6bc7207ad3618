package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"taskdeck/internal/model"
	"taskdeck/internal/store"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, map[string]any{"data": v})
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status := store.HTTPStatus(err)
	if status >= 500 {
		s.log.Error("store call failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, store.ErrorResponse{Error: err.Error(), Code: store.ErrorCode(err)})
}

func decodeBody(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidDocument, err)
	}
	return nil
}

func projectIDFromPath(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("projectId"))
	if id == "" {
		return "", fmt.Errorf("%w: missing project id", store.ErrInvalidDocument)
	}
	return id, nil
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ps, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, ps)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := projectIDFromPath(r)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	p, ok, err := s.store.GetProject(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if !ok {
		s.writeStoreError(w, r, fmt.Errorf("project %s: %w", id, store.ErrNotFound))
		return
	}
	writeData(w, http.StatusOK, p)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var np model.NewProject
	if err := decodeBody(r, &np); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if np.Tasks == nil {
		np.Tasks = []model.Task{}
	}
	id, err := s.store.CreateProject(r.Context(), np)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.log.Info("project created", "id", id, "name", np.Name)
	writeData(w, http.StatusCreated, store.CreateProjectResponse{ID: id})
}

func (s *Server) handleUpdateTasks(w http.ResponseWriter, r *http.Request) {
	id, err := projectIDFromPath(r)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	var upd store.TasksUpdate
	if err := decodeBody(r, &upd); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if err := s.store.UpdateTasks(r.Context(), id, upd); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := projectIDFromPath(r)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if err := s.store.DeleteProject(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.log.Info("project deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

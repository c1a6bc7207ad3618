package store

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"taskdeck/internal/model"
)

// Wire types shared by RemoteClient and the web server.

type WatchTarget string

const (
	TargetProjects WatchTarget = "projects"
	TargetProject  WatchTarget = "project"
)

const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameSnapshot    = "snapshot"
	FrameError       = "error"
)

// ClientFrame is sent by a client on the watch websocket.
type ClientFrame struct {
	Type   string      `json:"type"`
	SubID  string      `json:"subId"`
	Target WatchTarget `json:"target,omitempty"`
	ID     string      `json:"id,omitempty"`
}

// ServerFrame is pushed by the server on the watch websocket. Projects is set
// for collection snapshots, Doc for document snapshots.
type ServerFrame struct {
	Type     string           `json:"type"`
	SubID    string           `json:"subId"`
	Projects []model.Project  `json:"projects,omitempty"`
	Doc      *ProjectSnapshot `json:"doc,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type CreateProjectResponse struct {
	ID string `json:"id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

const (
	codeNotFound = "not_found"
	codeInvalid  = "invalid_document"
)

// ErrorCode classifies err for ErrorResponse.Code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return codeNotFound
	case errors.Is(err, ErrInvalidDocument):
		return codeInvalid
	default:
		return ""
	}
}

// HTTPStatus maps store errors to response codes.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidDocument):
		return http.StatusBadRequest
	case errors.Is(err, ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorFromResponse rebuilds a store error from a failed response so callers
// can still use errors.Is.
func errorFromResponse(status int, body ErrorResponse) error {
	msg := strings.TrimSpace(body.Error)
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch {
	case body.Code == codeNotFound || status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case body.Code == codeInvalid || status == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrInvalidDocument, msg)
	default:
		return fmt.Errorf("store server: %d %s", status, msg)
	}
}

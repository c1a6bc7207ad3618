package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"net/http"
	"strings"

	"taskdeck/internal/store"
)

// requestAPIKey reads the key from the Authorization header, falling back to
// ?key= (browsers cannot set headers on EventSource or WebSocket).
func requestAPIKey(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("key"))
}

// keysEqual compares digests so timing depends on neither key's length.
func keysEqual(got, want string) bool {
	a := sha256.Sum256([]byte(got))
	b := sha256.Sum256([]byte(want))
	return hmac.Equal(a[:], b[:])
}

func (s *Server) authorized(r *http.Request) bool {
	want := s.cfg.APIKey
	if want == "" {
		return true
	}
	return keysEqual(requestAPIKey(r), want)
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || s.authorized(r) {
			next.ServeHTTP(w, r)
			return
		}
		s.log.Warn("unauthorized request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		w.Header().Set("WWW-Authenticate", `Bearer realm="taskdeck"`)
		writeJSON(w, http.StatusUnauthorized, store.ErrorResponse{Error: "unauthorized", Code: "unauthorized"})
	})
}

package store

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// newDocumentID returns a lowercase ULID. Monotonic entropy keeps ids created
// in the same millisecond sortable in creation order.
func newDocumentID(now time.Time) (string, error) {
	idMu.Lock()
	defer idMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(now), idEntropy)
	if err != nil {
		return "", err
	}
	return strings.ToLower(id.String()), nil
}

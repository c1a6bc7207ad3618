package model

import (
	"strconv"
	"time"
)

// TimestampLayout is the ISO-8601 layout used for createdAt fields.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Tasks     []Task `json:"tasks"`
	CreatedAt string `json:"createdAt"`
}

// Task is always embedded in exactly one Project.
type Task struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

// NewProject holds the fields written when a project document is created.
// The id is assigned by the store.
type NewProject struct {
	Name      string `json:"name"`
	Tasks     []Task `json:"tasks"`
	CreatedAt string `json:"createdAt"`
}

// Equal reports structural equality (every field), which is how tasks are
// matched for removal.
func (t Task) Equal(o Task) bool {
	return t.ID == o.ID && t.Name == o.Name && t.CreatedAt == o.CreatedAt
}

// Normalize makes Tasks non-nil so callers can range and marshal a stable [].
func (p Project) Normalize() Project {
	if p.Tasks == nil {
		p.Tasks = []Task{}
	}
	return p
}

// Clone returns a copy that shares no slice memory with p.
func (p Project) Clone() Project {
	out := p
	out.Tasks = append([]Task{}, p.Tasks...)
	return out
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// TaskIDAt derives a task id from wall-clock milliseconds. Two clients creating
// a task in the same millisecond can collide; ids are only unique in practice.
func TaskIDAt(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// NewTask builds a task stamped at now. name must already be trimmed.
func NewTask(name string, now time.Time) Task {
	return Task{
		ID:        TaskIDAt(now),
		Name:      name,
		CreatedAt: FormatTimestamp(now),
	}
}

package tui

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"taskdeck/internal/model"
	"taskdeck/internal/selection"
	"taskdeck/internal/store"
	"taskdeck/internal/viewmodel"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	xansi "github.com/charmbracelet/x/ansi"
)

func newTestApp(t *testing.T) (appModel, *store.SQLiteStore) {
	t.Helper()
	logger := log.New(io.Discard)
	st, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "taskdeck.sqlite"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	sel := selection.New()
	b := newBridge()
	projects := viewmodel.NewProjectList(st, sel, b, logger)
	tasks := viewmodel.NewTaskList(st, sel, b, logger)
	m := newAppModel(context.Background(), projects, tasks, b, logger)
	t.Cleanup(m.shutdown)

	mm, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return mm.(appModel), st
}

// pumpUntil feeds presenter messages into Update until cond holds.
func pumpUntil(t *testing.T, m appModel, what string, cond func(appModel) bool) appModel {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for !cond(m) {
		ch := make(chan tea.Msg, 1)
		go func(b *bridge) {
			msg, _ := b.next()
			ch <- msg
		}(m.bridge)
		select {
		case msg := <-ch:
			mm, _ := m.Update(msg)
			m = mm.(appModel)
		case <-deadline:
			t.Fatalf("timed out waiting for %s; view:\n%s", what, plainView(m))
		}
	}
	return m
}

// press sends a key and runs a resulting write (if any) to completion.
func press(t *testing.T, m appModel, key tea.KeyMsg) appModel {
	t.Helper()
	before := m.writes
	mm, cmd := m.Update(key)
	m = mm.(appModel)
	if m.writes > before && cmd != nil {
		msg := cmd()
		if _, ok := msg.(writeDoneMsg); !ok {
			t.Fatalf("expected writeDoneMsg, got %T", msg)
		}
		mm, _ = m.Update(msg)
		m = mm.(appModel)
	}
	return m
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
)

func plainView(m appModel) string { return xansi.Strip(m.View()) }

func TestApp_ShowsEmptyStateAfterFirstSnapshot(t *testing.T) {
	m, _ := newTestApp(t)
	m = pumpUntil(t, m, "projects loaded", func(m appModel) bool { return !m.projectState.Loading })

	v := plainView(m)
	if !strings.Contains(v, "No projects found.") {
		t.Fatalf("expected empty state, got:\n%s", v)
	}
	if !strings.Contains(v, "Create your first project to get started!") {
		t.Fatalf("expected empty-state hint, got:\n%s", v)
	}
}

func TestApp_CreateSelectAndAddTask(t *testing.T) {
	m, st := newTestApp(t)
	m = pumpUntil(t, m, "projects loaded", func(m appModel) bool { return !m.projectState.Loading })

	m = press(t, m, keyRunes("n"))
	m = pumpUntil(t, m, "new project", func(m appModel) bool { return len(m.projectState.Projects) == 1 })
	if got := m.projectState.Projects[0].Name; got != "New Project 1" {
		t.Fatalf("expected New Project 1, got %q", got)
	}
	if v := plainView(m); !strings.Contains(v, "New Project 1") || !strings.Contains(v, "0 tasks") {
		t.Fatalf("expected project row with task count, got:\n%s", v)
	}

	m = press(t, m, keyEnter)
	m = pumpUntil(t, m, "task screen", func(m appModel) bool {
		return m.view == viewTasks && !m.taskState.Loading
	})
	if v := plainView(m); !strings.Contains(v, "No tasks found for this project.") {
		t.Fatalf("expected empty task state, got:\n%s", v)
	}

	m = press(t, m, keyRunes("Buy milk"))
	m = press(t, m, keyEnter)
	m = pumpUntil(t, m, "task added", func(m appModel) bool { return len(m.taskState.Tasks) == 1 })
	if got := m.taskState.Tasks[0].Name; got != "Buy milk" {
		t.Fatalf("expected Buy milk, got %q", got)
	}
	if m.input.Value() != "" {
		t.Fatalf("expected input to be cleared, got %q", m.input.Value())
	}
	v := plainView(m)
	if !strings.Contains(v, "Buy milk") || !strings.Contains(v, "1 task") {
		t.Fatalf("expected task row and count in view, got:\n%s", v)
	}

	ps, err := st.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ps) != 1 || len(ps[0].Tasks) != 1 {
		t.Fatalf("expected task to be stored, got %+v", ps)
	}
}

func TestApp_EmptyTaskNameShowsAlert(t *testing.T) {
	m, st := newTestApp(t)
	if _, err := st.CreateProject(context.Background(), model.NewProject{Name: "Home", Tasks: []model.Task{}, CreatedAt: "2024-03-04T05:06:07.008Z"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	m = pumpUntil(t, m, "project listed", func(m appModel) bool { return len(m.projectState.Projects) == 1 })
	m = press(t, m, keyEnter)
	m = pumpUntil(t, m, "task screen", func(m appModel) bool { return m.view == viewTasks })

	m = press(t, m, keyRunes("   "))
	m = press(t, m, keyEnter)
	m = pumpUntil(t, m, "alert", func(m appModel) bool { return len(m.alerts) > 0 })
	if v := plainView(m); !strings.Contains(v, "Please enter a task name") {
		t.Fatalf("expected alert modal, got:\n%s", v)
	}

	m = press(t, m, keyEnter)
	if len(m.alerts) != 0 {
		t.Fatalf("expected enter to dismiss the alert")
	}
}

func TestApp_DeleteTaskAsksFirst(t *testing.T) {
	m, st := newTestApp(t)
	ctx := context.Background()
	id, err := st.CreateProject(ctx, model.NewProject{Name: "Home", Tasks: []model.Task{}, CreatedAt: "2024-03-04T05:06:07.008Z"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	task := model.Task{ID: "1", Name: "Water plants", CreatedAt: "2024-03-04T05:06:07.008Z"}
	if err := st.UpdateTasks(ctx, id, store.ArrayUnion(task)); err != nil {
		t.Fatalf("update: %v", err)
	}

	m = pumpUntil(t, m, "project listed", func(m appModel) bool { return len(m.projectState.Projects) == 1 })
	m = press(t, m, keyEnter)
	m = pumpUntil(t, m, "tasks loaded", func(m appModel) bool { return m.view == viewTasks && len(m.taskState.Tasks) == 1 })

	m = press(t, m, keyEsc) // leave the input
	m = press(t, m, keyRunes("d"))
	v := plainView(m)
	if !strings.Contains(v, "Delete Task") || !strings.Contains(v, `"Water plants"`) {
		t.Fatalf("expected confirm modal, got:\n%s", v)
	}

	m = press(t, m, keyRunes("n"))
	if m.taskState.PendingDelete != nil {
		t.Fatalf("expected cancel to clear the pending delete")
	}

	m = press(t, m, keyRunes("d"))
	m = press(t, m, keyRunes("y"))
	m = pumpUntil(t, m, "task removed", func(m appModel) bool { return len(m.taskState.Tasks) == 0 })

	p, ok, err := st.GetProject(ctx, id)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(p.Tasks) != 0 {
		t.Fatalf("expected task to be removed from store, got %+v", p.Tasks)
	}
}

func TestApp_ProjectDeletedReturnsToProjects(t *testing.T) {
	m, st := newTestApp(t)
	ctx := context.Background()
	id, err := st.CreateProject(ctx, model.NewProject{Name: "Doomed", Tasks: []model.Task{}, CreatedAt: "2024-03-04T05:06:07.008Z"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m = pumpUntil(t, m, "project listed", func(m appModel) bool { return len(m.projectState.Projects) == 1 })
	m = press(t, m, keyEnter)
	m = pumpUntil(t, m, "task screen", func(m appModel) bool { return m.view == viewTasks && !m.taskState.Loading })

	if err := st.DeleteProject(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	m = pumpUntil(t, m, "back on projects", func(m appModel) bool { return m.view == viewProjects })

	if len(m.alerts) != 1 || !m.alerts[0].IsProjectDeleted() {
		t.Fatalf("expected one Project Deleted alert, got %+v", m.alerts)
	}
	if v := plainView(m); !strings.Contains(v, "Project Deleted") {
		t.Fatalf("expected alert modal, got:\n%s", v)
	}
	if m.projectState.SelectedID != "" {
		t.Fatalf("expected selection to be cleared, got %q", m.projectState.SelectedID)
	}
}

func TestApp_TaskScreenWithoutSelection(t *testing.T) {
	m, _ := newTestApp(t)
	m = pumpUntil(t, m, "projects loaded", func(m appModel) bool { return !m.projectState.Loading })

	m = press(t, m, keyTab)
	if m.view != viewTasks {
		t.Fatalf("expected tab to open the task screen")
	}
	v := plainView(m)
	if !strings.Contains(v, "Select a project first.") || !strings.Contains(v, "Go to Projects") {
		t.Fatalf("expected no-selection state, got:\n%s", v)
	}

	m = press(t, m, keyEnter)
	if m.view != viewProjects {
		t.Fatalf("expected Go to Projects to navigate back")
	}
}

func TestApp_HelpModal(t *testing.T) {
	m, _ := newTestApp(t)
	m = pumpUntil(t, m, "projects loaded", func(m appModel) bool { return !m.projectState.Loading })

	m = press(t, m, keyRunes("?"))
	if m.modal != modalHelp {
		t.Fatalf("expected help modal")
	}
	if v := plainView(m); !strings.Contains(v, "Help") {
		t.Fatalf("expected help title, got:\n%s", v)
	}
	m = press(t, m, keyEsc)
	if m.modal != modalNone {
		t.Fatalf("expected esc to close help")
	}
}

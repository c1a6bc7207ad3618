package tui

import (
	"fmt"
	"time"

	"taskdeck/internal/model"

	"github.com/charmbracelet/bubbles/list"
)

type projectItem struct {
	project model.Project
	current bool
}

func (i projectItem) FilterValue() string { return i.project.Name }
func (i projectItem) Title() string {
	if i.current {
		return i.project.Name + " " + glyphBullet()
	}
	return i.project.Name
}
func (i projectItem) Description() string { return taskCountLabel(len(i.project.Tasks)) }

type taskItem struct {
	task model.Task
}

func (i taskItem) FilterValue() string { return i.task.Name }
func (i taskItem) Title() string       { return i.task.Name }
func (i taskItem) Description() string { return formatCreatedAt(i.task.CreatedAt) }

func taskCountLabel(n int) string {
	if n == 1 {
		return "1 task"
	}
	return fmt.Sprintf("%d tasks", n)
}

// formatCreatedAt shows a stored timestamp in local time, or the raw value if
// it does not parse.
func formatCreatedAt(s string) string {
	t, err := time.Parse(model.TimestampLayout, s)
	if err != nil {
		return s
	}
	return t.Local().Format("2006-01-02 15:04")
}

func projectItems(ps []model.Project, selectedID string) []list.Item {
	items := make([]list.Item, 0, len(ps))
	for _, p := range ps {
		items = append(items, projectItem{project: p, current: p.ID == selectedID})
	}
	return items
}

func taskItems(ts []model.Task) []list.Item {
	items := make([]list.Item, 0, len(ts))
	for _, t := range ts {
		items = append(items, taskItem{task: t})
	}
	return items
}

func newList(title string, items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	// We render our own header and footer, so keep list chrome minimal.
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(true)
	// Bubble list defaults to quitting on ESC; here ESC is "back/cancel".
	l.KeyMap.Quit.SetKeys("q")
	// Emacs-style navigation aliases.
	cursorUpKeys := append([]string{}, l.KeyMap.CursorUp.Keys()...)
	cursorUpKeys = append(cursorUpKeys, "ctrl+p")
	l.KeyMap.CursorUp.SetKeys(cursorUpKeys...)

	cursorDownKeys := append([]string{}, l.KeyMap.CursorDown.Keys()...)
	cursorDownKeys = append(cursorDownKeys, "ctrl+n")
	l.KeyMap.CursorDown.SetKeys(cursorDownKeys...)

	goToStartKeys := append([]string{}, l.KeyMap.GoToStart.Keys()...)
	goToStartKeys = append(goToStartKeys, "<")
	l.KeyMap.GoToStart.SetKeys(goToStartKeys...)

	goToEndKeys := append([]string{}, l.KeyMap.GoToEnd.Keys()...)
	goToEndKeys = append(goToEndKeys, ">")
	l.KeyMap.GoToEnd.SetKeys(goToEndKeys...)
	return l
}

// selectListItemByID keeps the cursor on the same record across refreshes.
func selectListItemByID(l *list.Model, id string) bool {
	for i, it := range l.Items() {
		switch it := it.(type) {
		case projectItem:
			if it.project.ID == id {
				l.Select(i)
				return true
			}
		case taskItem:
			if it.task.ID == id {
				l.Select(i)
				return true
			}
		}
	}
	return false
}

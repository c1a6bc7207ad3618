package tui

import (
	"taskdeck/internal/viewmodel"
)

type view int

const (
	viewProjects view = iota
	viewTasks
)

func viewToString(v view) string {
	switch v {
	case viewProjects:
		return "projects"
	case viewTasks:
		return "tasks"
	default:
		return "unknown"
	}
}

type modalKind int

const (
	modalNone modalKind = iota
	modalHelp
)

// Messages posted by the presenter bridge.
type vmChangedMsg struct{}

type alertMsg struct{ alert viewmodel.Alert }

type navigateMsg struct{ route viewmodel.Route }

// bridgeClosedMsg ends the event pump.
type bridgeClosedMsg struct{}

type writeOp string

const (
	writeCreateProject writeOp = "create project"
	writeAddTask       writeOp = "add task"
	writeDeleteTask    writeOp = "delete task"
)

type writeDoneMsg struct {
	op  writeOp
	err error
}

type taskFocus int

const (
	taskFocusInput taskFocus = iota
	taskFocusList
)

func (m *appModel) closeAllModals() {
	if m == nil {
		return
	}
	m.modal = modalNone
	m.confirmFocus = confirmFocusConfirm
}

package viewmodel

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskdeck/internal/model"
	"taskdeck/internal/selection"

	"github.com/stretchr/testify/require"
)

func newProjectListForTest() (*ProjectList, *fakeStore, *recorder, *selection.State) {
	st := &fakeStore{}
	ui := &recorder{}
	sel := selection.New()
	v := NewProjectList(st, sel, ui, quietLogger())
	v.now = func() time.Time { return testNow }
	return v, st, ui, sel
}

func TestProjectList_LoadingUntilFirstSnapshot(t *testing.T) {
	v, st, _, _ := newProjectListForTest()
	stop := v.Subscribe()
	defer stop()

	s := v.State()
	require.True(t, s.Loading)
	require.False(t, s.Empty())

	st.lastSub().onProjects([]model.Project{})
	s = v.State()
	require.False(t, s.Loading)
	require.True(t, s.Empty())
}

func TestProjectList_StateIsLatestSnapshot(t *testing.T) {
	v, st, _, _ := newProjectListForTest()
	stop := v.Subscribe()
	defer stop()

	sub := st.lastSub()
	sub.onProjects([]model.Project{{ID: "a", Name: "A"}})
	sub.onProjects([]model.Project{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}})
	sub.onProjects([]model.Project{{ID: "b", Name: "B"}})

	s := v.State()
	require.Equal(t, []model.Project{{ID: "b", Name: "B"}}, s.Projects)
	require.False(t, s.Empty())
}

func TestProjectList_CreateProjectNamesFromCount(t *testing.T) {
	v, st, ui, _ := newProjectListForTest()
	stop := v.Subscribe()
	defer stop()
	st.lastSub().onProjects([]model.Project{{ID: "a"}, {ID: "b"}})

	require.NoError(t, v.CreateProject(context.Background()))
	require.Len(t, st.creates, 1)
	require.Equal(t, "New Project 3", st.creates[0].Name)
	require.NotNil(t, st.creates[0].Tasks)
	require.Empty(t, st.creates[0].Tasks)
	require.Equal(t, "2024-03-04T05:06:07.008Z", st.creates[0].CreatedAt)
	require.Empty(t, ui.Alerts())

	// Local state waits for the store to echo the write.
	require.Len(t, v.State().Projects, 2)
}

func TestProjectList_CreateProjectError(t *testing.T) {
	v, st, ui, _ := newProjectListForTest()
	st.createErr = errors.New("offline")

	err := v.CreateProject(context.Background())
	require.Error(t, err)
	require.Equal(t, []Alert{{Title: "Error", Message: "Failed to create project"}}, ui.Alerts())
}

func TestProjectList_SubscriptionErrorKeepsList(t *testing.T) {
	v, st, ui, _ := newProjectListForTest()
	stop := v.Subscribe()
	defer stop()

	sub := st.lastSub()
	sub.onProjects([]model.Project{{ID: "a"}})
	sub.onError(errors.New("permission denied"))

	s := v.State()
	require.False(t, s.Loading)
	require.Equal(t, []model.Project{{ID: "a"}}, s.Projects)
	require.Equal(t, []Alert{{Title: "Error", Message: "Failed to load projects"}}, ui.Alerts())
	require.False(t, sub.live())
}

func TestProjectList_WatchFailureAlerts(t *testing.T) {
	v, st, ui, _ := newProjectListForTest()
	st.watchErr = errors.New("dial failed")

	stop := v.Subscribe()
	stop()
	require.False(t, v.State().Loading)
	require.Equal(t, []Alert{{Title: "Error", Message: "Failed to load projects"}}, ui.Alerts())
}

func TestProjectList_ResubscribeKeepsOneLive(t *testing.T) {
	v, st, _, _ := newProjectListForTest()
	stopOld := v.Subscribe()
	old := st.lastSub()
	stopNew := v.Subscribe()
	cur := st.lastSub()

	require.NotSame(t, old, cur)
	require.Equal(t, 1, st.liveSubs())

	// The retired subscription no longer affects state.
	old.onProjects([]model.Project{{ID: "stale"}})
	require.True(t, v.State().Loading)

	// Releasing the retired handle leaves the current one alone.
	stopOld()
	require.True(t, cur.live())

	stopNew()
	stopNew()
	require.Equal(t, 0, st.liveSubs())
}

func TestProjectList_SelectProject(t *testing.T) {
	v, _, ui, sel := newProjectListForTest()
	p := model.Project{ID: "p1", Name: "One", Tasks: []model.Task{}}

	v.SelectProject(p)

	got, ok := sel.Get()
	require.True(t, ok)
	require.Equal(t, p, got)
	require.Equal(t, []Route{RouteTasks}, ui.Routes())
	require.Equal(t, "p1", v.State().SelectedID)
}

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskdeck/internal/docs"
	"taskdeck/internal/viewmodel"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const defaultWriteTimeout = 15 * time.Second

type appModel struct {
	ctx          context.Context
	log          *log.Logger
	bridge       *bridge
	writeTimeout time.Duration

	projects        *viewmodel.ProjectList
	tasks           *viewmodel.TaskList
	releaseProjects func()

	width  int
	height int

	view         view
	modal        modalKind
	confirmFocus confirmModalFocus
	taskFocus    taskFocus
	alerts       []viewmodel.Alert
	writes       int

	projectState viewmodel.ProjectListState
	taskState    viewmodel.TaskListState

	projectsList list.Model
	tasksList    list.Model
	input        textinput.Model
	spinner      spinner.Model
}

func newAppModel(ctx context.Context, projects *viewmodel.ProjectList, tasks *viewmodel.TaskList, b *bridge, logger *log.Logger) appModel {
	ti := textinput.New()
	ti.Placeholder = "Enter new task..."
	ti.Prompt = ""
	ti.CharLimit = 200

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(colorAccent)

	m := appModel{
		ctx:          ctx,
		log:          logger.WithPrefix("tui"),
		bridge:       b,
		writeTimeout: defaultWriteTimeout,
		projects:     projects,
		tasks:        tasks,
		view:         viewProjects,
		projectsList: newList("Projects", nil),
		tasksList:    newList("Tasks", nil),
		input:        ti,
		spinner:      sp,
		width:        80,
		height:       24,
	}
	m.releaseProjects = projects.Subscribe()
	m.refresh()
	m.resizeLists()
	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.bridge), m.spinner.Tick)
}

// shutdown releases every store subscription the screens hold.
func (m appModel) shutdown() {
	if m.releaseProjects != nil {
		m.releaseProjects()
	}
	m.tasks.Close()
	m.bridge.close()
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case vmChangedMsg:
		cmd := m.refresh()
		return m, tea.Batch(cmd, waitForEvent(m.bridge))

	case alertMsg:
		m.alerts = append(m.alerts, msg.alert)
		return m, waitForEvent(m.bridge)

	case navigateMsg:
		cmd := m.navigate(msg.route)
		return m, tea.Batch(cmd, waitForEvent(m.bridge))

	case bridgeClosedMsg:
		return m, nil

	case writeDoneMsg:
		if m.writes > 0 {
			m.writes--
		}
		if msg.err != nil {
			// The view-model already alerted.
			m.log.Debug("write failed", "op", msg.op, "err", msg.err)
			return m, nil
		}
		if msg.op == writeAddTask {
			m.input.SetValue(m.tasks.State().Draft)
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}

	return m.forward(msg)
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.shutdown()
		return m, tea.Quit
	}

	if len(m.alerts) > 0 {
		switch msg.String() {
		case "enter", "esc", " ":
			m.alerts = m.alerts[1:]
		}
		return m, nil
	}

	if m.modal == modalHelp {
		switch msg.String() {
		case "esc", "enter", "q", "?":
			m.closeAllModals()
		}
		return m, nil
	}

	if m.view == viewTasks && m.taskState.PendingDelete != nil {
		return m.updateConfirmDelete(msg)
	}

	switch m.view {
	case viewProjects:
		return m.updateProjectsKey(msg)
	case viewTasks:
		return m.updateTasksKey(msg)
	}
	return m, nil
}

func (m appModel) updateProjectsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.projectsList.SettingFilter() {
		var cmd tea.Cmd
		m.projectsList, cmd = m.projectsList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.shutdown()
		return m, tea.Quit
	case "?":
		m.modal = modalHelp
		return m, nil
	case "n":
		cmd := m.startWrite(writeCreateProject, m.projects.CreateProject)
		return m, cmd
	case "enter":
		if it, ok := m.projectsList.SelectedItem().(projectItem); ok {
			// Navigation comes back through the bridge.
			m.projects.SelectProject(it.project)
		}
		return m, nil
	case "tab":
		cmd := m.navigate(viewmodel.RouteTasks)
		return m, cmd
	}

	var cmd tea.Cmd
	m.projectsList, cmd = m.projectsList.Update(msg)
	return m, cmd
}

func (m appModel) updateTasksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.taskState.NoProject {
		switch msg.String() {
		case "q":
			m.shutdown()
			return m, tea.Quit
		case "?":
			m.modal = modalHelp
		case "enter", "esc", "tab", "backspace":
			// "Go to Projects"
			cmd := m.navigate(viewmodel.RouteProjects)
			return m, cmd
		}
		return m, nil
	}

	if m.taskFocus == taskFocusInput {
		switch msg.String() {
		case "enter":
			m.tasks.SetDraft(m.input.Value())
			cmd := m.startWrite(writeAddTask, m.tasks.SubmitDraft)
			return m, cmd
		case "esc":
			m.taskFocus = taskFocusList
			m.input.Blur()
			return m, nil
		case "tab":
			cmd := m.navigate(viewmodel.RouteProjects)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.tasks.SetDraft(m.input.Value())
		return m, cmd
	}

	if m.tasksList.SettingFilter() {
		var cmd tea.Cmd
		m.tasksList, cmd = m.tasksList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.shutdown()
		return m, tea.Quit
	case "?":
		m.modal = modalHelp
		return m, nil
	case "a", "i":
		m.taskFocus = taskFocusInput
		cmd := m.input.Focus()
		return m, cmd
	case "d", "delete":
		if it, ok := m.tasksList.SelectedItem().(taskItem); ok {
			m.confirmFocus = confirmFocusConfirm
			m.tasks.DeleteTask(it.task)
			m.taskState = m.tasks.State()
		}
		return m, nil
	case "esc", "tab", "backspace":
		cmd := m.navigate(viewmodel.RouteProjects)
		return m, cmd
	}

	var cmd tea.Cmd
	m.tasksList, cmd = m.tasksList.Update(msg)
	return m, cmd
}

func (m appModel) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	confirm := func() (tea.Model, tea.Cmd) {
		m.confirmFocus = confirmFocusConfirm
		// ConfirmDelete clears the pending delete when the write starts.
		m.taskState.PendingDelete = nil
		cmd := m.startWrite(writeDeleteTask, m.tasks.ConfirmDelete)
		return m, cmd
	}
	cancel := func() (tea.Model, tea.Cmd) {
		m.confirmFocus = confirmFocusConfirm
		m.tasks.CancelDelete()
		m.taskState = m.tasks.State()
		return m, nil
	}

	switch msg.String() {
	case "y":
		return confirm()
	case "n", "esc":
		return cancel()
	case "tab", "shift+tab", "left", "right", "h", "l":
		if m.confirmFocus == confirmFocusConfirm {
			m.confirmFocus = confirmFocusCancel
		} else {
			m.confirmFocus = confirmFocusConfirm
		}
		return m, nil
	case "enter":
		if m.confirmFocus == confirmFocusConfirm {
			return confirm()
		}
		return cancel()
	}
	return m, nil
}

// forward hands non-key messages (cursor blink, filter results) to the
// focused component.
func (m appModel) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case viewProjects:
		m.projectsList, cmd = m.projectsList.Update(msg)
	case viewTasks:
		if m.taskFocus == taskFocusInput {
			m.input, cmd = m.input.Update(msg)
		} else {
			m.tasksList, cmd = m.tasksList.Update(msg)
		}
	}
	return m, cmd
}

func (m *appModel) startWrite(op writeOp, fn func(context.Context) error) tea.Cmd {
	m.writes++
	ctx, timeout := m.ctx, m.writeTimeout
	return func() tea.Msg {
		wctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return writeDoneMsg{op: op, err: fn(wctx)}
	}
}

func (m *appModel) navigate(route viewmodel.Route) tea.Cmd {
	switch route {
	case viewmodel.RouteTasks:
		if m.view == viewTasks {
			return nil
		}
		m.view = viewTasks
		m.taskFocus = taskFocusInput
		m.input.SetValue(m.tasks.State().Draft)
		m.tasks.Focus()
		m.refresh()
		return m.input.Focus()
	case viewmodel.RouteProjects:
		if m.view == viewProjects {
			return nil
		}
		m.tasks.Blur()
		m.input.Blur()
		m.view = viewProjects
		m.refresh()
	}
	return nil
}

// refresh pulls fresh state from both view-models into the lists.
func (m *appModel) refresh() tea.Cmd {
	m.projectState = m.projects.State()
	m.taskState = m.tasks.State()

	var cmds []tea.Cmd

	curProject := ""
	if it, ok := m.projectsList.SelectedItem().(projectItem); ok {
		curProject = it.project.ID
	}
	cmds = append(cmds, m.projectsList.SetItems(projectItems(m.projectState.Projects, m.projectState.SelectedID)))
	if curProject == "" || !selectListItemByID(&m.projectsList, curProject) {
		if m.projectState.SelectedID != "" {
			selectListItemByID(&m.projectsList, m.projectState.SelectedID)
		}
	}

	curTask := ""
	if it, ok := m.tasksList.SelectedItem().(taskItem); ok {
		curTask = it.task.ID
	}
	cmds = append(cmds, m.tasksList.SetItems(taskItems(m.taskState.Tasks)))
	if curTask != "" {
		selectListItemByID(&m.tasksList, curTask)
	}
	return tea.Batch(cmds...)
}

func (m *appModel) resizeLists() {
	// Leave room for header/footer (and the input on the task screen).
	w := m.width
	if w < 20 {
		w = 20
	}
	h := m.height - 5
	if h < 3 {
		h = 3
	}
	m.projectsList.SetSize(w, h)
	th := h - 2
	if th < 3 {
		th = 3
	}
	m.tasksList.SetSize(w, th)
	m.input.Width = w - 4
}

func (m appModel) View() string {
	if modal := m.viewModal(); modal != "" {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
	}

	var header, body string
	switch m.view {
	case viewTasks:
		header, body = m.viewTasks()
	default:
		header, body = m.viewProjects()
	}
	return strings.Join([]string{header, body, m.viewFooter()}, "\n\n")
}

func (m appModel) viewModal() string {
	if len(m.alerts) > 0 {
		a := m.alerts[0]
		return renderAlertModal(m.width, a.Title, a.Message)
	}
	if m.view == viewTasks && m.taskState.PendingDelete != nil {
		pd := m.taskState.PendingDelete
		return renderConfirmModal(m.width, pd.Title, pd.Prompt, "Delete", "Cancel", m.confirmFocus)
	}
	if m.modal == modalHelp {
		md, _ := docs.Get("keys")
		return renderModalBox(m.width, "Help", renderMarkdown(md, modalBodyWidth(m.width)-2))
	}
	return ""
}

func (m appModel) viewProjects() (string, string) {
	st := m.projectState
	header := styleTitle().Render("Projects")
	if !st.Loading {
		header += styleMuted().Render(" " + glyphSep() + " " + projectCountLabel(len(st.Projects)))
	}

	switch {
	case st.Loading:
		return header, m.spinner.View() + " Loading projects..."
	case st.Empty():
		return header, strings.Join([]string{
			"No projects found.",
			styleMuted().Render("Create your first project to get started!"),
		}, "\n")
	default:
		return header, m.projectsList.View()
	}
}

func (m appModel) viewTasks() (string, string) {
	st := m.taskState
	if st.NoProject {
		header := styleTitle().Render("Tasks")
		btn := lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true).
			Render("Go to Projects")
		return header, strings.Join([]string{"Select a project first.", "", btn}, "\n")
	}

	header := styleTitle().Render(st.Project.Name) +
		styleMuted().Render(" "+glyphSep()+" "+taskCountLabel(len(st.Tasks)))

	input := renderTaskInput(m.width, m.input)

	var rest string
	switch {
	case st.Loading:
		rest = m.spinner.View() + " Loading tasks..."
	case len(st.Tasks) == 0:
		rest = styleMuted().Render("No tasks found for this project.")
	default:
		rest = m.tasksList.View()
	}
	return header, input + "\n\n" + rest
}

func (m appModel) viewFooter() string {
	var keys string
	switch {
	case m.view == viewProjects:
		keys = "enter: open  n: new project  /: filter  ?: help  q: quit"
	case m.taskState.NoProject:
		keys = "enter: go to projects  q: quit"
	case m.taskFocus == taskFocusInput:
		keys = "enter: add task  esc: leave input  tab: projects"
	default:
		keys = "a: new task  d: delete  esc: projects  ?: help  q: quit"
	}
	if m.writes > 0 {
		keys = "saving...  " + keys
	}
	return styleMuted().Render(keys)
}

func projectCountLabel(n int) string {
	if n == 1 {
		return "1 project"
	}
	return fmt.Sprintf("%d projects", n)
}

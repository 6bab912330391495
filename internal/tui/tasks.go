package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pomo/internal/engine"
)

type tasksModel struct {
	eng    *engine.Engine
	width  int
	height int

	cursor int

	formActive bool
	form       *huh.Form
	formType   string // "new", "delete"

	// Form field pointers (survive value copies)
	formName     *string
	formEstimate *string
	formConfirm  *bool

	deletingID string
}

func newTasksModel(eng *engine.Engine) tasksModel {
	name, estimate, confirm := "", "1", false
	return tasksModel{
		eng:          eng,
		formName:     &name,
		formEstimate: &estimate,
		formConfirm:  &confirm,
	}
}

func (t *tasksModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

// taskDoneMsg is emitted when a task is marked completed.
type taskDoneMsg struct {
	name string
}

func (t tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	if t.formActive && t.form != nil {
		return t.updateForm(msg)
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return t, nil
	}
	tasks := t.eng.Tasks()
	t.cursor = clampCursor(t.cursor, len(tasks))

	switch {
	case key.Matches(km, keys.Up):
		if t.cursor > 0 {
			t.cursor--
		}
	case key.Matches(km, keys.Down):
		if t.cursor < len(tasks)-1 {
			t.cursor++
		}
	case key.Matches(km, keys.New):
		return t.showNewTaskForm()
	case key.Matches(km, keys.Enter):
		if len(tasks) > 0 {
			t.eng.SetActiveTask(tasks[t.cursor].ID)
		}
	case key.Matches(km, keys.Clear):
		t.eng.ClearActiveTask()
	case key.Matches(km, keys.Complete):
		if len(tasks) > 0 {
			if task, ok := t.eng.ToggleCompletion(tasks[t.cursor].ID); ok && task.Completed {
				return t, func() tea.Msg { return taskDoneMsg{name: task.Name} }
			}
		}
	case key.Matches(km, keys.Delete):
		if len(tasks) > 0 {
			return t.showDeleteConfirm(tasks[t.cursor])
		}
	}
	return t, nil
}

func clampCursor(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}

func (t tasksModel) showNewTaskForm() (tasksModel, tea.Cmd) {
	*t.formName = ""
	*t.formEstimate = "1"

	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Task name").Value(t.formName).CharLimit(engine.MaxTaskNameLength).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
			huh.NewInput().Title("Estimated pomodoros").Value(t.formEstimate).
				Validate(validatePositive),
		).Title("New task"),
	).WithShowHelp(true).WithShowErrors(true)

	t.formType = "new"
	t.formActive = true
	return t, t.form.Init()
}

func (t tasksModel) showDeleteConfirm(task engine.Task) (tasksModel, tea.Cmd) {
	*t.formConfirm = false
	t.deletingID = task.ID

	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q?", task.Name)).
				Affirmative("Delete").
				Negative("Cancel").
				Value(t.formConfirm),
		),
	)

	t.formType = "delete"
	t.formActive = true
	return t, t.form.Init()
}

func (t tasksModel) updateForm(msg tea.Msg) (tasksModel, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
		t.formActive = false
		t.form = nil
		return t, nil
	}

	form, cmd := t.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		t.form = f
	}

	switch t.form.State {
	case huh.StateCompleted:
		t.formActive = false
		t.form = nil
		return t, t.submitForm()
	case huh.StateAborted:
		t.formActive = false
		t.form = nil
		return t, nil
	}
	return t, cmd
}

func (t *tasksModel) submitForm() tea.Cmd {
	switch t.formType {
	case "new":
		return t.addTask(*t.formName, *t.formEstimate)
	case "delete":
		if *t.formConfirm {
			t.eng.DeleteTask(t.deletingID)
		}
		t.deletingID = ""
	}
	return nil
}

// addTask creates a task from raw form values.
func (t *tasksModel) addTask(name, estimate string) tea.Cmd {
	n, err := strconv.Atoi(strings.TrimSpace(estimate))
	if err != nil {
		n = 0
	}
	task, err := t.eng.AddTask(name, n)
	if err != nil {
		return func() tea.Msg { return statusMsg{text: err.Error(), isError: true} }
	}
	t.cursor = len(t.eng.Tasks()) - 1
	return func() tea.Msg { return statusMsg{text: "Added " + task.Name} }
}

func validatePositive(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fmt.Errorf("enter a whole number of at least 1")
	}
	return nil
}

func (t tasksModel) view() string {
	w := t.width - 4

	if t.formActive && t.form != nil {
		return activePanelStyle.Width(w).Render(t.form.View())
	}

	tasks := t.eng.Tasks()
	activeID := t.eng.ActiveTaskID()

	var rows []string
	rows = append(rows, titleStyle.Render("Tasks"), "")

	if len(tasks) == 0 {
		rows = append(rows, mutedStyle.Render("  No tasks yet. Press n to add one."))
	}

	cursor := clampCursor(t.cursor, len(tasks))
	for i, task := range tasks {
		marker := "  "
		style := normalItemStyle
		if i == cursor {
			marker = "> "
			style = selectedItemStyle
		}
		check := "[ ]"
		if task.Completed {
			check = "[x]"
			if i != cursor {
				style = doneItemStyle
			}
		}
		line := fmt.Sprintf("%s%s %s", marker, check, task.Name)
		counts := mutedStyle.Render(fmt.Sprintf(" %d/%d", task.CompletedPomodoros, task.EstimatedPomodoros))
		active := ""
		if task.ID == activeID {
			active = warningStyle.Render(" ★ active")
		}
		rows = append(rows, style.Render(line)+counts+active)
	}

	rows = append(rows, "", mutedStyle.Render("  n: new  enter: set active  x: clear active  c: toggle done  d: delete"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// Package tui is the terminal presentation of the pomodoro engine.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pomo/internal/engine"
	"github.com/sadopc/pomo/internal/export"
)

const tickInterval = 100 * time.Millisecond

// App is the root Bubble Tea model. All engine calls happen on the Update
// goroutine; commands only see copies of engine data.
type App struct {
	eng      *engine.Engine
	notifier Notifier
	now      func() time.Time

	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int
	exportDir     string

	timer    timerModel
	tasks    tasksModel
	history  historyModel
	settings settingsModel

	help        help.Model
	status      string
	statusError bool
}

// Option configures an App.
type Option func(*App)

// WithClock overrides the wall clock fed to the engine.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithExportDir sets where exports are written. The default is the home
// directory.
func WithExportDir(dir string) Option {
	return func(a *App) { a.exportDir = dir }
}

func NewApp(eng *engine.Engine, n Notifier, opts ...Option) App {
	h := help.New()
	h.ShowAll = false

	a := App{
		eng:        eng,
		notifier:   n,
		now:        time.Now,
		activeView: viewTimer,
		help:       h,
	}
	if home, err := os.UserHomeDir(); err == nil {
		a.exportDir = home
	}
	for _, opt := range opts {
		opt(&a)
	}
	a.timer = newTimerModel(eng, a.now)
	a.tasks = newTasksModel(eng)
	a.history = newHistoryModel(eng, a.now)
	a.settings = newSettingsModel(eng)
	a.takeWarnings()
	return a
}

func (a App) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := a.update(msg)
	app := model.(App)
	app.takeWarnings()
	return app, cmd
}

func (a App) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.timer.setSize(a.width, contentHeight)
		a.tasks.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		if a.activeView == viewHistory {
			a.history.refresh()
		}
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchView(viewTimer), nil
		case key.Matches(msg, keys.Tab2):
			return a.switchView(viewTasks), nil
		case key.Matches(msg, keys.Tab3):
			return a.switchView(viewHistory), nil
		case key.Matches(msg, keys.Tab4):
			return a.switchView(viewSettings), nil
		case key.Matches(msg, keys.Tab):
			return a.switchView((a.activeView + 1) % viewState(len(viewNames))), nil
		}

		// Timer controls work from every view.
		if a.activeView != viewTasks && a.activeView != viewSettings {
			var cmd tea.Cmd
			a.timer, cmd = a.timer.update(msg)
			return a, cmd
		}
		if key.Matches(msg, keys.Toggle) {
			var cmd tea.Cmd
			a.timer, cmd = a.timer.update(msg)
			return a, cmd
		}

	case tickMsg:
		cmd := a.timer.tick(time.Time(msg))
		return a, tea.Batch(tickCmd(), cmd)

	case cueMsg:
		a.notifier.Play(msg.Sound)
		a.notifier.Notify(msg.Title, msg.Body)
		a.status = msg.Title + " " + msg.Body
		a.statusError = false
		if a.activeView == viewHistory {
			a.history.refresh()
		}
		return a, nil

	case taskDoneMsg:
		a.notifier.Play(engine.SoundComplete)
		a.status = "Completed " + msg.name
		a.statusError = false
		return a, nil

	case statusMsg:
		a.status = msg.text
		a.statusError = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusError = false
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) switchView(v viewState) App {
	a.activeView = v
	if v == viewHistory {
		a.history.refresh()
	}
	return a
}

// takeWarnings surfaces persistence failures in the status bar.
func (a *App) takeWarnings() {
	warnings := a.eng.Warnings()
	if len(warnings) == 0 {
		return
	}
	last := warnings[len(warnings)-1]
	a.status = "Not saved: " + last.Error()
	if len(warnings) > 1 {
		a.status += fmt.Sprintf(" (+%d more)", len(warnings)-1)
	}
	a.statusError = true
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTimer:
		a.timer, cmd = a.timer.update(msg)
	case viewTasks:
		a.tasks, cmd = a.tasks.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTasks:
		return a.tasks.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTimer:
		content = a.timer.view()
	case viewTasks:
		content = a.tasks.view()
	case viewHistory:
		content = a.history.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(1, a.height-headerHeight-footerHeight)

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("pomo")
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Countdown in the footer while away from the timer view.
	timerInfo := ""
	if st := a.eng.State(); a.activeView != viewTimer && st.Running {
		color := lipgloss.NewStyle().Foreground(modeColor(st.Mode))
		timerInfo = color.Render(" ● " + engine.FormatDuration(st.Remaining()))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	formats := []string{"CSV", "JSON"}
	var rows []string
	rows = append(rows, titleStyle.Render("Export Format"), "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// doExport snapshots tasks and history now and writes them off the
// Update goroutine.
func (a App) doExport(format int) tea.Cmd {
	history := a.eng.History()
	tasks := a.eng.Tasks()
	dir := a.exportDir
	dateStr := a.now().Format("2006-01-02")

	return func() tea.Msg {
		var path string
		if format == 0 {
			path = filepath.Join(dir, fmt.Sprintf("pomo-export-%s.csv", dateStr))
			if err := export.ToCSV(history, tasks, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(dir, fmt.Sprintf("pomo-export-%s.json", dateStr))
			if err := export.ToJSON(history, tasks, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}
		return exportDoneMsg{path: path}
	}
}

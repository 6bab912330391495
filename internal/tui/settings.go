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

type settingsModel struct {
	eng    *engine.Engine
	width  int
	height int

	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	work     *string
	short    *string
	long     *string
	perCycle *string
}

func newSettingsModel(eng *engine.Engine) settingsModel {
	w, s, l, c := "", "", "", ""
	return settingsModel{
		eng:      eng,
		work:     &w,
		short:    &s,
		long:     &l,
		perCycle: &c,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Enter), key.Matches(km, keys.New):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	cur := s.eng.Settings().Minutes()
	*s.work = strconv.Itoa(cur.Work)
	*s.short = strconv.Itoa(cur.ShortBreak)
	*s.long = strconv.Itoa(cur.LongBreak)
	*s.perCycle = strconv.Itoa(cur.SessionsBeforeLongBreak)

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Work (min)").Value(s.work).Validate(validatePositive),
			huh.NewInput().Title("Short break (min)").Value(s.short).Validate(validatePositive),
			huh.NewInput().Title("Long break (min)").Value(s.long).Validate(validatePositive),
			huh.NewInput().Title("Work sessions before long break").Value(s.perCycle).Validate(validatePositive),
		).Title("Timer"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
		s.formActive = false
		s.form = nil
		return s, nil
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	switch s.form.State {
	case huh.StateCompleted:
		s.formActive = false
		s.form = nil
		return s, s.apply(*s.work, *s.short, *s.long, *s.perCycle)
	case huh.StateAborted:
		s.formActive = false
		s.form = nil
	}
	return s, cmd
}

// apply parses the form values and hands them to the engine, which
// validates them.
func (s settingsModel) apply(work, short, long, perCycle string) tea.Cmd {
	atoi := func(v string) int {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	}
	_, err := s.eng.UpdateSettings(engine.SettingsMinutes{
		Work:                    atoi(work),
		ShortBreak:              atoi(short),
		LongBreak:               atoi(long),
		SessionsBeforeLongBreak: atoi(perCycle),
	})
	if err != nil {
		return func() tea.Msg { return statusMsg{text: err.Error(), isError: true} }
	}
	return func() tea.Msg { return statusMsg{text: "Settings saved"} }
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Settings"), "", s.form.View()),
		)
	}

	cur := s.eng.Settings().Minutes()
	items := []struct {
		label string
		value string
	}{
		{"Work", fmt.Sprintf("%d min", cur.Work)},
		{"Short break", fmt.Sprintf("%d min", cur.ShortBreak)},
		{"Long break", fmt.Sprintf("%d min", cur.LongBreak)},
		{"Sessions before long break", strconv.Itoa(cur.SessionsBeforeLongBreak)},
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Settings"), "")
	for _, it := range items {
		label := lipgloss.NewStyle().Width(28).Render(it.label)
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(it.value)))
	}
	rows = append(rows, "", mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

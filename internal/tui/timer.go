package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pomo/internal/engine"
)

// timerModel renders the countdown and forwards timer intents to the engine.
type timerModel struct {
	eng    *engine.Engine
	now    func() time.Time
	width  int
	height int

	bar progress.Model
}

func newTimerModel(eng *engine.Engine, now func() time.Time) timerModel {
	return timerModel{
		eng: eng,
		now: now,
		bar: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

func (t *timerModel) setSize(w, h int) {
	t.width = w
	t.height = h
	t.bar.Width = max(10, w-16)
}

// cueMsg is emitted when the timer enters a new mode.
type cueMsg engine.Cue

func (t timerModel) update(msg tea.Msg) (timerModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return t, nil
	}
	switch {
	case key.Matches(km, keys.Toggle):
		if t.eng.State().Running {
			t.eng.Pause(t.now())
		} else {
			t.eng.Start(t.now())
		}
	case key.Matches(km, keys.Reset):
		t.eng.Reset()
		t.eng.SetMode(t.eng.State().Mode)
	case key.Matches(km, keys.Skip):
		_, cue := t.eng.Skip(t.now())
		return t, func() tea.Msg { return cueMsg(cue) }
	case key.Matches(km, keys.Work):
		t.eng.SetMode(engine.Work)
	case key.Matches(km, keys.ShortBreak):
		t.eng.SetMode(engine.ShortBreak)
	case key.Matches(km, keys.LongBreak):
		t.eng.SetMode(engine.LongBreak)
	}
	return t, nil
}

// tick advances the engine. A boundary yields the cue for the new mode.
func (t timerModel) tick(now time.Time) tea.Cmd {
	res := t.eng.Tick(now)
	if !res.Boundary {
		return nil
	}
	cue := engine.CueFor(res.Snapshot.Mode)
	return func() tea.Msg { return cueMsg(cue) }
}

func (t timerModel) view() string {
	w := t.width - 4
	st := t.eng.State()
	snap := t.eng.Snapshot()
	color := modeColor(st.Mode)

	var tabs []string
	for _, m := range []engine.Mode{engine.Work, engine.ShortBreak, engine.LongBreak} {
		if m == st.Mode {
			tabs = append(tabs, activeTabStyle.BorderForeground(color).Foreground(color).Render(m.Label()))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(m.Label()))
		}
	}
	modeRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	clock := lipgloss.NewStyle().Bold(true).Foreground(color).
		Width(max(10, w-6)).Align(lipgloss.Center).
		Render(snap.FormattedDuration)

	state := mutedStyle.Render("Paused")
	if st.Running {
		state = successStyle.Render("● Running")
	}

	session := mutedStyle.Render(fmt.Sprintf("Session %d of %d", snap.SessionIndex, snap.TotalSessions))
	dots := renderSessionDots(snap.SessionIndex, snap.TotalSessions, st.Mode)

	active := mutedStyle.Render("No active task")
	if task, ok := t.eng.ActiveTask(); ok {
		active = "Working on: " + highlightStyle.Render(task.Name) +
			mutedStyle.Render(fmt.Sprintf(" (%d/%d)", task.CompletedPomodoros, task.EstimatedPomodoros))
	}

	controls := mutedStyle.Render("space: start/pause  r: reset  s: skip  w/b/l: mode")

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center,
		modeRow,
		"",
		clock,
		state,
		"",
		t.bar.ViewAs(t.eng.Progress()),
		"",
		session,
		dots,
		"",
		active,
		"",
		controls,
	))
}

func renderSessionDots(index, total int, mode engine.Mode) string {
	var parts []string
	for i := 1; i <= total; i++ {
		switch {
		case i < index:
			parts = append(parts, successStyle.Render("●"))
		case i == index && mode == engine.Work:
			parts = append(parts, lipgloss.NewStyle().Foreground(colorPrimary).Render("◐"))
		case i == index:
			parts = append(parts, successStyle.Render("●"))
		default:
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	return strings.Join(parts, " ")
}

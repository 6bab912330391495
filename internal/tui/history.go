package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pomo/internal/engine"
)

const (
	historyDays   = 7
	historyRecent = 10
)

// historyModel shows Work minutes per day and the latest sessions.
type historyModel struct {
	eng    *engine.Engine
	now    func() time.Time
	width  int
	height int

	totals []engine.DayTotal
	recent []engine.HistoryEntry
	chart  barchart.Model
}

func newHistoryModel(eng *engine.Engine, now func() time.Time) historyModel {
	return historyModel{
		eng:   eng,
		now:   now,
		chart: barchart.New(60, 12),
	}
}

func (h *historyModel) setSize(w, h2 int) {
	h.width = w
	h.height = h2
}

// refresh recomputes the statistics from the engine history.
func (h *historyModel) refresh() {
	history := h.eng.History()
	h.totals = engine.WorkByDay(history, h.now(), historyDays)
	h.recent = engine.Recent(history, historyRecent)
	h.buildChart()
}

func (h *historyModel) buildChart() {
	chartWidth := max(20, h.width-8)
	chartHeight := 12
	if h.height > 30 {
		chartHeight = 16
	}

	h.chart = barchart.New(chartWidth, chartHeight)

	style := lipgloss.NewStyle().Foreground(colorPrimary)
	var bars []barchart.BarData
	for _, d := range h.totals {
		bars = append(bars, barchart.BarData{
			Label: d.Day.Format("Mon 02"),
			Values: []barchart.BarValue{{
				Name:  "Work",
				Value: float64(d.Minutes),
				Style: style,
			}},
		})
	}

	h.chart.PushAll(bars)
	h.chart.Draw()
}

// today returns the totals for the current day.
func (h historyModel) today() engine.DayTotal {
	if len(h.totals) == 0 {
		return engine.DayTotal{}
	}
	return h.totals[len(h.totals)-1]
}

func (h historyModel) view() string {
	w := h.width - 4

	today := h.today()
	var week int
	for _, d := range h.totals {
		week += d.Minutes
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("History"), "  ",
		mutedStyle.Render(fmt.Sprintf("Today: %d pomodoros, %s  ·  Last %d days: %s",
			today.Pomodoros, formatMinutes(today.Minutes), historyDays, formatMinutes(week))),
	)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		header, "", h.chart.View(), "", h.renderRecent(w),
		"", mutedStyle.Render("  e: export"),
	))
}

func (h historyModel) renderRecent(w int) string {
	if len(h.recent) == 0 {
		return mutedStyle.Render("  No sessions recorded yet")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-17s %-12s %8s  %s", "Completed", "Mode", "Length", "Task")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 60))))

	for _, e := range h.recent {
		dot := lipgloss.NewStyle().Foreground(modeColor(e.Mode)).Render("●")
		rows = append(rows, fmt.Sprintf("  %-17s %s %-10s %8s  %s",
			e.Timestamp.Local().Format("Jan 02 15:04"), dot, e.Mode.Label(),
			formatMinutes(e.DurationMinutes), e.TaskName,
		))
	}
	return strings.Join(rows, "\n")
}

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pomo/internal/engine"
)

var (
	colorWork      = lipgloss.Color("#E4572E")
	colorShort     = lipgloss.Color("#2EC4B6")
	colorLong      = lipgloss.Color("#7AA2F7")
	colorMuted     = lipgloss.Color("#6C7086")
	colorSuccess   = lipgloss.Color("#A6E3A1")
	colorWarning   = lipgloss.Color("#FAB387")
	colorError     = lipgloss.Color("#F38BA8")
	colorFg        = lipgloss.Color("#CDD6F4")
	colorSubtle    = lipgloss.Color("#45475A")
	colorHighlight = lipgloss.Color("#F9E2AF")

	// colorPrimary is the work accent, also used for focus outside the timer.
	colorPrimary = colorWork
)

// modeColor is the accent used while the timer is in m.
func modeColor(m engine.Mode) lipgloss.Color {
	switch m {
	case engine.ShortBreak:
		return colorShort
	case engine.LongBreak:
		return colorLong
	default:
		return colorWork
	}
}

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

func boxed(border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(1, 2)
}

var (
	activeTabStyle = fg(colorPrimary).Bold(true).Padding(0, 2).
			Border(lipgloss.NormalBorder(), false, false, true, false).BorderForeground(colorPrimary)
	inactiveTabStyle = fg(colorMuted).Padding(0, 2)

	panelStyle       = boxed(colorSubtle)
	activePanelStyle = boxed(colorPrimary)

	titleStyle     = fg(colorFg).Bold(true)
	successStyle   = fg(colorSuccess)
	warningStyle   = fg(colorWarning)
	errorStyle     = fg(colorError)
	mutedStyle     = fg(colorMuted)
	highlightStyle = fg(colorHighlight)

	headerStyle = lipgloss.NewStyle().Padding(0, 1)
	footerStyle = fg(colorMuted).Padding(0, 1)

	selectedItemStyle = fg(colorPrimary).Bold(true)
	normalItemStyle   = fg(colorFg)
	doneItemStyle     = fg(colorMuted).Strikethrough(true)
)

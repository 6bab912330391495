package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds every binding; the help bubble renders it.
type keyMap struct {
	Toggle     key.Binding
	Reset      key.Binding
	Skip       key.Binding
	Work       key.Binding
	ShortBreak key.Binding
	LongBreak  key.Binding
	New        key.Binding
	Complete   key.Binding
	Delete     key.Binding
	Clear      key.Binding
	Export     key.Binding
	Tab1       key.Binding
	Tab2       key.Binding
	Tab3       key.Binding
	Tab4       key.Binding
	Tab        key.Binding
	Help       key.Binding
	Enter      key.Binding
	Back       key.Binding
	Up         key.Binding
	Down       key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	Toggle:     bind("space", "start/pause", " "),
	Reset:      bind("r", "reset", "r"),
	Skip:       bind("s", "skip", "s"),
	Work:       bind("w", "work", "w"),
	ShortBreak: bind("b", "short break", "b"),
	LongBreak:  bind("l", "long break", "l"),
	New:        bind("n", "new", "n"),
	Complete:   bind("c", "toggle done", "c"),
	Delete:     bind("d", "delete", "d"),
	Clear:      bind("x", "clear active", "x"),
	Export:     bind("e", "export", "e"),
	Tab1:       bind("1", "timer", "1"),
	Tab2:       bind("2", "tasks", "2"),
	Tab3:       bind("3", "history", "3"),
	Tab4:       bind("4", "settings", "4"),
	Tab:        bind("tab", "next view", "tab"),
	Help:       bind("?", "help", "?"),
	Enter:      bind("enter", "select", "enter"),
	Back:       bind("esc", "back", "esc"),
	Up:         bind("↑/k", "up", "up", "k"),
	Down:       bind("↓/j", "down", "down", "j"),
	Quit:       bind("q", "quit", "q", "ctrl+c"),
}

// bind builds a binding whose help line is "label desc".
func bind(label, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(label, desc))
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Reset, k.Skip, k.New, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Reset, k.Skip},
		{k.Work, k.ShortBreak, k.LongBreak},
		{k.New, k.Complete, k.Delete, k.Clear, k.Export},
		{k.Tab1, k.Tab2, k.Tab3, k.Tab4},
		{k.Up, k.Down, k.Enter, k.Back, k.Quit},
	}
}

package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Pause    key.Binding
	Step     key.Binding
	Theme    key.Binding
	Deselect key.Binding
	Grid     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Pause:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause")),
		Step:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "step")),
		Theme:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		Deselect: key.NewBinding(key.WithKeys("c", "esc"), key.WithHelp("c", "clear selection")),
		Grid:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "grid lines")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Theme, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Step, k.Grid},
		{k.Theme, k.Deselect},
		{k.Help, k.Quit},
	}
}

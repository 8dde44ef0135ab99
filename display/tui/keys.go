package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the key bindings of the graph view. It implements
// help.KeyMap.
type keyMap struct {
	Toggle key.Binding
	Top    key.Binding
	Reset  key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// ShortHelp returns the bindings shown in the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Top, k.Reset, k.Help, k.Quit}
}

// FullHelp returns the bindings shown when help is expanded.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Top, k.Reset},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Toggle: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "timescale")),
	Top:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "top processes")),
	Reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset totals")),
	Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit    key.Binding
	Tab     key.Binding
	Up      key.Binding
	Down    key.Binding
	Install key.Binding
	Cancel  key.Binding
	Dismiss key.Binding
	Help    key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "metrics/tools"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Install: key.NewBinding(
		key.WithKeys("enter", "i"),
		key.WithHelp("enter", "install"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "cancel"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "dismiss"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

// shortHelp lists the bindings shown in the footer for a tab.
func (k keyMap) shortHelp(tools bool) []key.Binding {
	if tools {
		return []key.Binding{k.Tab, k.Up, k.Down, k.Install, k.Cancel, k.Dismiss, k.Quit}
	}
	return []key.Binding{k.Tab, k.Help, k.Quit}
}

package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the player key bindings.
type KeyMap struct {
	Toggle  key.Binding
	VolUp   key.Binding
	VolDown key.Binding
	Quit    key.Binding
}

// ShortHelp returns the bindings shown in the help line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.VolUp, k.VolDown, k.Quit}
}

// DefaultKeyMap is the default key map.
var DefaultKeyMap = KeyMap{
	Toggle: key.NewBinding(
		key.WithKeys(" ", "enter"),
		key.WithHelp("space", "play/pause"),
	),
	VolUp: key.NewBinding(
		key.WithKeys("+", "=", "up"),
		key.WithHelp("+", "vol+"),
	),
	VolDown: key.NewBinding(
		key.WithKeys("-", "_", "down"),
		key.WithHelp("-", "vol-"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

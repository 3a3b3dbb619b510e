package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Begin    key.Binding
	Next     key.Binding
	Prev     key.Binding
	Copy     key.Binding
	Settings key.Binding
	Help     key.Binding
	Quit     key.Binding

	// Settings panel
	Up     key.Binding
	Down   key.Binding
	Lower  key.Binding
	Raise  key.Binding
	Mute   key.Binding
	Save   key.Binding
	Cancel key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Begin:    key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "begin")),
		Next:     key.NewBinding(key.WithKeys("right", "l", "n"), key.WithHelp("→/n", "next passage")),
		Prev:     key.NewBinding(key.WithKeys("left", "h", "p"), key.WithHelp("←/p", "previous passage")),
		Copy:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy passage")),
		Settings: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "settings")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Lower:  key.NewBinding(key.WithKeys("left", "h", "-"), key.WithHelp("←/-", "lower")),
		Raise:  key.NewBinding(key.WithKeys("right", "l", "+", "="), key.WithHelp("→/+", "raise")),
		Mute:   key.NewBinding(key.WithKeys("m", " "), key.WithHelp("m", "toggle mute")),
		Save:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Settings, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Copy},
		{k.Settings, k.Help, k.Quit},
	}
}

// settingsHelp is the key map shown under the settings panel.
type settingsHelp keyMap

func (k settingsHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Lower, k.Raise, k.Mute, k.Save, k.Cancel}
}

func (k settingsHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

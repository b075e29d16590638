package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NewChat    key.Binding
	NextChat   key.Binding
	DeleteChat key.Binding
	CopyLast   key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	ScrollEnd  key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NewChat, k.NextChat, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NewChat, k.NextChat, k.DeleteChat, k.CopyLast},
		{k.ScrollUp, k.ScrollDown, k.ScrollEnd},
		{k.Help, k.Quit},
	}
}

var defaultKeyMap = keyMap{
	NewChat: key.NewBinding(
		key.WithKeys("ctrl+n"),
		key.WithHelp("ctrl+n", "new chat"),
	),
	NextChat: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next chat"),
	),
	DeleteChat: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("ctrl+x", "delete chat"),
	),
	CopyLast: key.NewBinding(
		key.WithKeys("ctrl+y"),
		key.WithHelp("ctrl+y", "copy last message"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "scroll up"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "scroll down"),
	),
	ScrollEnd: key.NewBinding(
		key.WithKeys("end"),
		key.WithHelp("end", "scroll to end"),
	),
	Help: key.NewBinding(
		key.WithKeys("ctrl+h"),
		key.WithHelp("ctrl+h", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

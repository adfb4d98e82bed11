package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the application
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
	Enter    key.Binding
	Back     key.Binding
	NextPage key.Binding
	PrevPage key.Binding

	// Post actions
	Upvote   key.Binding
	Downvote key.Binding
	Fave     key.Binding
	Download key.Binding

	// Cache controls
	Sync    key.Binding
	Export  key.Binding
	Import  key.Binding
	Purge   key.Binding
	Refresh key.Binding

	// Visibility toggles
	ToggleHideUp   key.Binding
	ToggleHideDown key.Binding

	// Misc
	Filter    key.Binding
	TagSearch key.Binding
	Help      key.Binding
	Quit      key.Binding

	// Confirmations
	Confirm key.Binding
	Deny    key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "top"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "bottom"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open post"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("]", "right"),
			key.WithHelp("]", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("[", "left"),
			key.WithHelp("[", "prev page"),
		),

		Upvote: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "upvote"),
		),
		Downvote: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "downvote"),
		),
		Fave: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "toggle favourite"),
		),
		Download: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "download"),
		),

		Sync: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "sync cache"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export cache"),
		),
		Import: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "import cache"),
		),
		Purge: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "clear cache"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload from cache"),
		),

		ToggleHideUp: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "toggle hide upvoted"),
		),
		ToggleHideDown: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "toggle hide downvoted"),
		),

		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		TagSearch: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "tag search"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "confirm"),
		),
		Deny: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n", "cancel"),
		),
	}
}

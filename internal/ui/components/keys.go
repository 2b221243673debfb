package components

import "charm.land/bubbles/v2/key"

// KeyMap holds the bindings shared by every screen.
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Enter     key.Binding
	Back      key.Binding
	Next      key.Binding
	Bookmark  key.Binding
	Retry     key.Binding
	Subscribe key.Binding
	Options   [4]key.Binding
}

// Keys is the default key map.
var Keys = KeyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "down")),
	Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "submit")),
	Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "back")),
	Next:      key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n/→", "next")),
	Bookmark:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bookmark")),
	Retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
	Subscribe: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "subscribe")),
	Options: [4]key.Binding{
		key.NewBinding(key.WithKeys("a", "A"), key.WithHelp("a", "option A")),
		key.NewBinding(key.WithKeys("b", "B"), key.WithHelp("b", "option B")),
		key.NewBinding(key.WithKeys("c", "C"), key.WithHelp("c", "option C")),
		key.NewBinding(key.WithKeys("d", "D"), key.WithHelp("d", "option D")),
	},
}

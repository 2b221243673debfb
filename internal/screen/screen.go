package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/simulado/internal/ui/layout"
)

// Screen is one page of the study TUI.
type Screen interface {
	// Init returns the command to run when the screen is shown.
	Init() tea.Cmd

	// Update handles messages and returns the updated screen.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the content area between header and footer.
	View(width, height int) string

	// Title is shown in the header.
	Title() string
}

// KeyHintProvider is implemented by screens with their own footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// Resumer is implemented by screens that reload state when they become
// active again after the screen above them is popped.
type Resumer interface {
	Resume() tea.Cmd
}

// Closer is implemented by screens holding background work. The router
// calls Close once the screen leaves the stack.
type Closer interface {
	Close()
}

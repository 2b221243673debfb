// Package app is the root Bubble Tea model of the study TUI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/simulado/internal/logging"
	"github.com/abhisek/simulado/internal/router"
	"github.com/abhisek/simulado/internal/screen"
	"github.com/abhisek/simulado/internal/screens/home"
	"github.com/abhisek/simulado/internal/ui/layout"
)

const statusInterval = 2 * time.Second

// StatusFunc reads what the header shows.
type StatusFunc func(ctx context.Context) layout.Status

// Options configures the TUI.
type Options struct {
	Home   home.Deps
	Status StatusFunc
	Log    *slog.Logger
}

type statusMsg layout.Status

type statusTickMsg struct{}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	status layout.Status
	read   StatusFunc
	width  int
	height int
}

func newAppModel(opts Options) AppModel {
	return AppModel{
		router: router.New(home.New(opts.Home)),
		read:   opts.Status,
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.router.Active().Init(), m.refreshStatus())
}

func (m AppModel) refreshStatus() tea.Cmd {
	if m.read == nil {
		return nil
	}
	read := m.read
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return statusMsg(read(ctx))
	}
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case statusMsg:
		m.status = layout.Status(msg)
		return m, tea.Tick(statusInterval, func(time.Time) tea.Msg { return statusTickMsg{} })

	case statusTickMsg:
		return m, m.refreshStatus()

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	if m.width == 0 || m.height == 0 {
		return v
	}
	v.SetContent(m.render())
	return v
}

// render draws header, active screen and footer.
func (m AppModel) render() string {
	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	header := layout.RenderHeader(title, m.status, m.width)
	footer := layout.RenderFooter(m.footerHints(active), m.width)

	contentHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

func (m AppModel) footerHints(active screen.Screen) []layout.KeyHint {
	if p, ok := active.(screen.KeyHintProvider); ok {
		if hints := p.KeyHints(); len(hints) > 0 {
			return append(hints, layout.KeyHint{Key: "Ctrl+C", Description: "Quit"})
		}
	}
	if m.router.Depth() > 1 {
		return []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

// Run starts the TUI and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(newAppModel(opts), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		logging.OrDiscard(opts.Log).Error("tui exited with error", "error", err)
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

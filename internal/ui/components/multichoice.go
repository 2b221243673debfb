package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/simulado/internal/qbank"
	"github.com/abhisek/simulado/internal/ui/theme"
)

// MultiChoice renders the four options of a question. It holds no state
// of its own; the quiz screen fills it from the session on every render.
type MultiChoice struct {
	Options  [4]qbank.Option
	Cursor   int
	Selected qbank.OptionID
	Revealed bool
	Correct  qbank.OptionID
	Width    int
}

// View renders one line per option. After the reveal the correct option
// is green and a wrong pick is red.
func (m MultiChoice) View() string {
	textWidth := m.Width - 8
	if textWidth < 20 {
		textWidth = 20
	}

	var b strings.Builder
	for i, opt := range m.Options {
		prefix := "  "
		if !m.Revealed && i == m.Cursor {
			prefix = "▸ "
		}
		mark := " "
		if opt.ID == m.Selected {
			mark = "●"
		}

		text := lipgloss.NewStyle().Width(textWidth).Render(opt.Text)
		line := fmt.Sprintf("%s%s %s) %s", prefix, mark, opt.ID, text)

		b.WriteString(m.style(i, opt.ID).Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m MultiChoice) style(i int, id qbank.OptionID) lipgloss.Style {
	if m.Revealed {
		switch {
		case id == m.Correct:
			return theme.Correct
		case id == m.Selected:
			return theme.Incorrect
		default:
			return theme.Muted
		}
	}
	if i == m.Cursor || id == m.Selected {
		return theme.Selected
	}
	return theme.Unselected
}

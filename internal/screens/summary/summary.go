package summary

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/simulado/internal/router"
	"github.com/abhisek/simulado/internal/screen"
	"github.com/abhisek/simulado/internal/session"
	"github.com/abhisek/simulado/internal/ui/components"
	"github.com/abhisek/simulado/internal/ui/layout"
	"github.com/abhisek/simulado/internal/ui/theme"
)

// SummaryScreen shows the results of a finished pass.
type SummaryScreen struct {
	summary session.Summary
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)

// New creates a new SummaryScreen.
func New(summary session.Summary) *SummaryScreen {
	return &SummaryScreen{summary: summary}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Results"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Continue"},
		{Key: "Esc", Description: "Home"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyPressMsg); ok {
		if key.Matches(kmsg, components.Keys.Enter, components.Keys.Back) {
			return s, func() tea.Msg { return router.PopToRootMsg{} }
		}
	}
	return s, nil
}

func (s *SummaryScreen) View(width, height int) string {
	sum := s.summary
	var b strings.Builder

	b.WriteString(layout.Centered("Pass complete!", width, theme.Title))
	b.WriteString("\n\n")

	mins := int(sum.Duration.Minutes())
	secs := int(sum.Duration.Seconds()) % 60
	b.WriteString(layout.Centered(fmt.Sprintf("Duration: %d:%02d", mins, secs), width, theme.Muted))
	b.WriteString("\n\n")

	statsLine := fmt.Sprintf("Answered: %d/%d        Correct: %d        Accuracy: %d%%",
		sum.Answered, sum.TotalQuestions, sum.Correct, sum.Percent())
	b.WriteString(layout.Centered(statsLine, width, theme.Body))
	b.WriteString("\n\n")

	if len(sum.Subjects) == 0 {
		return b.String()
	}

	barWidth := min(width-8, 60)
	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", barWidth))
	b.WriteString(layout.Centered("Subjects", width, theme.Muted))
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, divider))
	b.WriteString("\n\n")

	for _, sr := range sum.Subjects {
		if sr.Attempted == 0 {
			continue
		}
		bar := components.NewAccuracyBar(sr.Subject, sr.Correct, sr.Attempted, barWidth)
		bar.LabelWidth = 24
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, bar.View()))
		b.WriteString("\n")
	}

	return b.String()
}

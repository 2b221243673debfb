package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/simulado/internal/ui/theme"
)

// AccuracyBar renders correct answers out of a total as a labelled bar
// followed by the counts.
type AccuracyBar struct {
	Label       string
	Correct     int
	Total       int
	Width       int
	LabelWidth  int // pads labels so bars line up; 0 leaves them as is
	ShowPercent bool
}

// NewAccuracyBar creates a bar for correct out of total answers.
func NewAccuracyBar(label string, correct, total, width int) AccuracyBar {
	return AccuracyBar{Label: label, Correct: correct, Total: total, Width: width}
}

// Ratio returns the share of correct answers clamped to [0, 1].
func (a AccuracyBar) Ratio() float64 {
	if a.Total <= 0 {
		return 0
	}
	return min(max(float64(a.Correct)/float64(a.Total), 0), 1)
}

// View renders the bar.
func (a AccuracyBar) View() string {
	var label string
	if a.Label != "" {
		style := lipgloss.NewStyle().Foreground(theme.Text)
		if a.LabelWidth > 0 {
			style = style.Width(a.LabelWidth).MaxWidth(a.LabelWidth)
		}
		label = style.Render(a.Label) + "  "
	}

	counts := fmt.Sprintf("  %d/%d", a.Correct, a.Total)
	if a.ShowPercent {
		counts += fmt.Sprintf("  %3.0f%%", a.Ratio()*100)
	}

	barWidth := max(a.Width-lipgloss.Width(label)-len(counts), 4)
	filled := int(float64(barWidth) * a.Ratio())

	return label +
		theme.ProgressFilled.Render(strings.Repeat("█", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat("░", barWidth-filled)) +
		theme.Muted.Render(counts)
}

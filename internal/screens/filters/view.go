package filters

import (
	"fmt"
	"slices"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/simulado/internal/ui/layout"
	"github.com/abhisek/simulado/internal/ui/theme"
)

const labelWidth = 20

func (s *Screen) View(width, height int) string {
	if !s.loaded {
		return layout.Centered("\n\n  Loading filters...", width, theme.Muted)
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(layout.Centered(s.countLine(), width, theme.Subtitle))
	b.WriteString("\n\n")

	var form strings.Builder
	for r := rowSearch; r < rowCount; r++ {
		form.WriteString(s.renderRow(r))
		form.WriteString("\n")
	}
	card := theme.Card.Width(min(width-4, 76)).Render(strings.TrimRight(form.String(), "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, card))

	if stale := s.b.StaleSources(); len(stale) > 0 && !layout.IsCompactHeight(height+layout.HeaderHeight+layout.FooterHeight) {
		b.WriteString("\n")
		b.WriteString(layout.Centered("Not in the selected disciplines: "+strings.Join(stale, ", "), width, theme.Hint))
	}
	if s.notice != "" {
		b.WriteString("\n\n")
		b.WriteString(layout.Centered(s.notice, width, theme.Warning))
	}
	return b.String()
}

func (s *Screen) countLine() string {
	c := s.b.Criteria()
	switch {
	case c.IsReview():
		return "Review sets are not counted"
	case !s.counted:
		return "Counting questions..."
	case s.count == 1:
		return "1 question matches"
	default:
		return fmt.Sprintf("%d questions match", s.count)
	}
}

func (s *Screen) renderRow(r row) string {
	c := s.b.Criteria()
	opts := s.form.Options()

	var label, value string
	switch r {
	case rowSearch:
		label, value = "Search", s.search.View()
	case rowDisciplines:
		label = "Disciplines"
		value = browse(opts.Disciplines, s.pick[r], c.Disciplines)
	case rowSources:
		label = "Sources"
		value = browse(opts.Sources, s.pick[r], c.Sources)
	case rowExam:
		label = "Exam"
		value = "◂ " + orAny(c.Exam) + " ▸"
	case rowLimit:
		label = "Questions"
		value = fmt.Sprintf("◂ %d ▸", c.Limit)
	case rowNotAnswered:
		label, value = "Not answered only", s.check(c.OnlyNotAnswered)
	case rowWrong:
		label, value = "Wrong answers only", s.check(c.OnlyWrong)
	}

	prefix, style := "  ", theme.Unselected
	if r == s.cursor {
		prefix, style = "▸ ", theme.Selected
	}
	line := style.Render(prefix+fmt.Sprintf("%-*s", labelWidth, label)) + value

	switch r {
	case rowDisciplines:
		if len(c.Disciplines) > 0 {
			line += "\n" + theme.Hint.Render(strings.Repeat(" ", labelWidth+2)+strings.Join(c.Disciplines, ", "))
		}
	case rowSources:
		if len(c.Sources) > 0 {
			line += "\n" + theme.Hint.Render(strings.Repeat(" ", labelWidth+2)+strings.Join(c.Sources, ", "))
		}
	}
	return line
}

func (s *Screen) check(on bool) string {
	box := "[ ]"
	if on {
		box = "[x]"
	}
	if !s.b.Premium() {
		box += " " + lipgloss.NewStyle().Foreground(theme.Accent).Render("Premium")
	}
	return box
}

// browse shows the highlighted option and whether it is selected.
func browse(opts []string, i int, selected []string) string {
	v, ok := at(opts, i)
	if !ok {
		return theme.Muted.Render("none available")
	}
	mark := "  "
	if slices.Contains(selected, v) {
		mark = "✓ "
	}
	return fmt.Sprintf("◂ %s%s ▸ %s", mark, v, theme.Muted.Render(fmt.Sprintf("%d/%d", i+1, len(opts))))
}

func orAny(exam string) string {
	if exam == "" {
		return "Any"
	}
	return exam
}

// describe is a one-line summary used in logs.
func (s *Screen) describe() string {
	c := s.b.Criteria()
	return fmt.Sprintf("disciplines=%d sources=%d exam=%q search=%q limit=%d not_answered=%t wrong=%t",
		len(c.Disciplines), len(c.Sources), c.Exam, c.SearchText, c.Limit, c.OnlyNotAnswered, c.OnlyWrong)
}

package quiz

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/simulado/internal/session"
	"github.com/abhisek/simulado/internal/ui/components"
	"github.com/abhisek/simulado/internal/ui/layout"
	"github.com/abhisek/simulado/internal/ui/theme"
)

func (s *Screen) View(width, height int) string {
	var body string
	switch s.state {
	case stateLoading:
		body = layout.Centered("\n\n  Loading questions...", width, theme.Muted)
	case stateFailed:
		body = s.renderFailure(width)
	case stateEmpty:
		body = layout.Centered("\n\n"+s.result.Empty.Message(), width, theme.Hint)
	default:
		if s.sess.Blocked() {
			body = renderBlocked(width, s.deps.Gate.Limit())
		} else {
			body = s.renderQuestion(width)
		}
	}

	if s.notice != "" {
		body += "\n\n" + layout.Centered(s.notice, width, theme.Warning)
	}
	return body
}

func (s *Screen) renderFailure(width int) string {
	msg := fmt.Sprintf("\n\n  Could not load questions: %v", s.err)
	if s.retryable {
		msg += "\n\n  Press r to try again."
	}
	return layout.Centered(msg, width, lipgloss.NewStyle().Foreground(theme.Error))
}

func renderBlocked(width, limit int) string {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(layout.Centered("Daily limit reached", width, theme.Warning))
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(fmt.Sprintf("Free accounts answer up to %d questions a day.", limit), width, theme.Body))
	b.WriteString("\n")
	b.WriteString(layout.Centered("Go Premium to keep practicing without limits.", width, theme.Body))
	b.WriteString("\n\n")
	b.WriteString(layout.Centered("Press s to see the plans.", width, theme.Hint))
	return b.String()
}

func (s *Screen) renderQuestion(width int) string {
	q, ok := s.sess.Current()
	if !ok {
		return ""
	}

	var b strings.Builder

	infoLeft := lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render("  " + q.Title())

	mark := ""
	if s.deps.Bookmarks != nil && s.deps.Bookmarks.Bookmarked(q.ID) {
		mark = lipgloss.NewStyle().Foreground(theme.Accent).Render("★ ")
	}
	infoRight := mark + theme.Muted.Render(fmt.Sprintf("Q %d/%d", s.sess.Index()+1, s.sess.Len()))

	infoLine := infoLeft
	if pad := width - lipgloss.Width(infoLeft) - lipgloss.Width(infoRight) - 4; pad > 0 {
		infoLine += strings.Repeat(" ", pad) + infoRight
	}
	b.WriteString(infoLine)
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 0))))
	b.WriteString("\n\n")

	textWidth := min(width-8, 90)
	text := lipgloss.NewStyle().Width(textWidth).Foreground(theme.Text).Bold(true).Render(q.Text)
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, text))
	b.WriteString("\n\n")

	mc := components.MultiChoice{
		Options:  q.Options,
		Cursor:   s.cursor,
		Selected: s.sess.Selected(),
		Revealed: s.sess.Revealed(),
		Correct:  q.Correct,
		Width:    textWidth,
	}
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, mc.View()))

	if out, ok := s.sess.LastOutcome(); ok {
		b.WriteString("\n")
		b.WriteString(renderOutcome(out, s.sess.IsLast(), width))
	}
	return b.String()
}

func renderOutcome(out session.Outcome, last bool, width int) string {
	var b strings.Builder
	if out.Correct {
		b.WriteString(layout.Centered("Correct!", width, theme.Correct))
	} else {
		b.WriteString(layout.Centered("Not quite", width, theme.Incorrect))
		b.WriteString("\n")
		if opt, ok := out.Question.Option(out.Question.Correct); ok {
			b.WriteString(layout.Centered(
				fmt.Sprintf("Correct answer: %s) %s", opt.ID, opt.Text), width, theme.Muted))
		}
	}
	b.WriteString("\n\n")

	next := "Press n for the next question."
	if last {
		next = "Press n to see your results."
	}
	b.WriteString(layout.Centered(next, width, theme.Hint))
	return b.String()
}

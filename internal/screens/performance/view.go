package performance

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/simulado/internal/stats"
	"github.com/abhisek/simulado/internal/ui/components"
	"github.com/abhisek/simulado/internal/ui/layout"
	"github.com/abhisek/simulado/internal/ui/theme"
)

func (s *Screen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Tab", Description: "Section"}}
	switch {
	case s.locked():
		hints = append(hints, layout.KeyHint{Key: "Enter", Description: "Go Premium"})
	case s.section == sectionSubjects:
		desc := "Latest attempt only"
		if s.policy == stats.LatestAttempt {
			desc = "Every attempt"
		}
		hints = append(hints, layout.KeyHint{Key: "l", Description: desc})
	case s.section == sectionEvolution:
		hints = append(hints,
			layout.KeyHint{Key: "r", Description: "Range"},
			layout.KeyHint{Key: "s", Description: "Subject"})
	case s.section == sectionRanking:
		hints = append(hints, layout.KeyHint{Key: "p", Description: "Public profile"})
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
}

func (s *Screen) View(width, height int) string {
	switch {
	case s.err != nil:
		return layout.Centered(fmt.Sprintf("\n\nError: %v", s.err), width,
			lipgloss.NewStyle().Foreground(theme.Error))
	case !s.loaded:
		return layout.Centered("\n\n  Loading performance...", width, theme.Muted)
	case s.userID == "":
		return layout.Centered("\n\n  Sign in with `simulado login` to track your performance.", width, theme.Hint)
	case s.report.Overall.Total == 0:
		return layout.Centered("\n\n  No answers yet. Start practicing!", width, theme.Hint)
	}

	var b strings.Builder
	b.WriteString("\n")

	o := s.report.Overall
	b.WriteString(layout.Centered(
		fmt.Sprintf("%d answers   %d correct   %.0f%%", o.Total, o.Correct, o.Percent()), width, theme.Title))
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.tabs()))
	b.WriteString("\n\n")

	switch {
	case s.locked():
		b.WriteString(renderLocked(s.section, width))
	case s.section == sectionEvolution:
		b.WriteString(s.renderEvolution(width))
	case s.section == sectionRanking:
		b.WriteString(s.renderRanking(width))
	default:
		b.WriteString(s.renderSubjects(width))
	}

	if s.notice != "" {
		b.WriteString("\n\n")
		b.WriteString(layout.Centered(s.notice, width, theme.Warning))
	}
	return b.String()
}

func (s *Screen) tabs() string {
	parts := make([]string, 0, sectionCount)
	for sec := sectionSubjects; sec < sectionCount; sec++ {
		label := sec.String()
		if sec.premium() && !s.premium {
			label += " ★"
		}
		if sec == s.section {
			parts = append(parts, theme.Selected.Render("["+label+"]"))
		} else {
			parts = append(parts, theme.Unselected.Render(" "+label+" "))
		}
	}
	return strings.Join(parts, "  ")
}

func (s *Screen) renderSubjects(width int) string {
	var b strings.Builder
	policy := "counting every attempt"
	if s.policy == stats.LatestAttempt {
		policy = "counting each question's latest attempt"
	}
	b.WriteString(layout.Centered(policy, width, theme.Subtitle))
	b.WriteString("\n\n")

	barWidth := min(width-8, 70)
	for _, row := range s.report.Subjects {
		bar := components.NewAccuracyBar(row.Subject, row.Correct, row.Total, barWidth)
		bar.LabelWidth = 28
		bar.ShowPercent = true
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, bar.View()))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *Screen) renderEvolution(width int) string {
	var b strings.Builder
	subject := s.selectedSubject()
	if subject == "" {
		subject = "all subjects"
	}
	b.WriteString(layout.Centered(fmt.Sprintf("Accuracy, %s · %s", s.rng, subject), width, theme.Subtitle))
	b.WriteString("\n\n")

	points := s.Evolution()
	if len(points) == 0 {
		b.WriteString(layout.Centered("No answers in this period.", width, theme.Hint))
		return b.String()
	}
	barWidth := min(width-8, 70)
	for _, p := range points {
		bar := components.NewAccuracyBar(p.Label, p.Correct, p.Total, barWidth)
		bar.LabelWidth = 8
		bar.ShowPercent = true
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, bar.View()))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *Screen) renderRanking(width int) string {
	var b strings.Builder
	visibility := "Your profile is private. Other names are hidden."
	if s.public {
		visibility = "Your profile is public. You appear by name."
	}
	b.WriteString(layout.Centered(visibility, width, theme.Subtitle))
	b.WriteString("\n\n")

	var rows strings.Builder
	prev := 0
	for _, st := range stats.Top(s.ranked, rankingSize) {
		if prev > 0 && st.Position > prev+1 {
			rows.WriteString(theme.Muted.Render("   ⋮"))
			rows.WriteString("\n")
		}
		line := fmt.Sprintf("%3d. %-28s %3d%%  %s", st.Position, truncate(st.Name, 28), st.Score,
			theme.Muted.Render(fmt.Sprintf("%d answers", st.Answered)))
		if st.Me {
			line = theme.Selected.Render(line)
		}
		rows.WriteString(line)
		rows.WriteString("\n")
		prev = st.Position
	}
	card := theme.Card.Width(min(width-4, 64)).Render(strings.TrimRight(rows.String(), "\n"))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, card))

	if p := stats.Percentile(s.ranked); p > 0 && len(s.ranked) > 1 {
		b.WriteString("\n\n")
		b.WriteString(layout.Centered(fmt.Sprintf("You are in the top %d%% of candidates.", p), width, theme.Hint))
	}
	return b.String()
}

func renderLocked(sec section, width int) string {
	var b strings.Builder
	b.WriteString(layout.Centered(theme.PremiumBadge.Render("PREMIUM"), width, lipgloss.NewStyle()))
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(sec.String()+" is available on paid plans.", width, theme.Subtitle))
	b.WriteString("\n")
	b.WriteString(layout.Centered("Press Enter to see the plans.", width, theme.Hint))
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

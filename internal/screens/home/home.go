// Package home is the root screen: a menu of study modes.
package home

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/simulado/internal/auth"
	"github.com/abhisek/simulado/internal/filter"
	"github.com/abhisek/simulado/internal/logging"
	"github.com/abhisek/simulado/internal/router"
	"github.com/abhisek/simulado/internal/screen"
	"github.com/abhisek/simulado/internal/screens/filters"
	"github.com/abhisek/simulado/internal/screens/performance"
	"github.com/abhisek/simulado/internal/screens/quiz"
	"github.com/abhisek/simulado/internal/screens/upsell"
	"github.com/abhisek/simulado/internal/stats"
	"github.com/abhisek/simulado/internal/store"
	"github.com/abhisek/simulado/internal/ui/components"
	"github.com/abhisek/simulado/internal/ui/layout"
	"github.com/abhisek/simulado/internal/ui/theme"
)

// maxNotices caps the notice board.
const maxNotices = 3

// NoticeSource lists the notices to show at a given time.
type NoticeSource interface {
	Active(ctx context.Context, now time.Time) ([]store.Notice, error)
}

// Deps are what the screens reachable from home need.
type Deps struct {
	Quiz quiz.Deps
	// Filters and Performance are completed with the user and the upsell
	// by New.
	Filters     filters.Deps
	Performance performance.Deps
	Notices     NoticeSource
	Checkout    upsell.CheckoutFunc
	Identity    func() *auth.Identity
	// Criteria seeds the Study filters and the reviews.
	Criteria filter.Criteria
	Log      *slog.Logger
}

type dashboardMsg struct {
	Notices    []store.Notice
	Percentile int
	TargetExam string
}

// HomeScreen is the main menu.
type HomeScreen struct {
	deps Deps
	menu components.Menu
	log  *slog.Logger

	notices    []store.Notice
	percentile int
	targetExam string
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)
var _ screen.Resumer = (*HomeScreen)(nil)

// New creates the home screen.
func New(deps Deps) *HomeScreen {
	if deps.Identity == nil {
		deps.Identity = func() *auth.Identity { return nil }
	}
	h := &HomeScreen{deps: deps, log: logging.OrDiscard(deps.Log).With("component", "home")}
	h.deps.Quiz.UserID = h.userID
	h.deps.Quiz.Upsell = func() screen.Screen {
		return upsell.New(h.deps.Checkout, h.userID, "You reached today's free answer limit.")
	}
	h.deps.Filters.Quiz = h.deps.Quiz
	h.deps.Filters.UserID = h.userID
	h.deps.Filters.Upsell = func(reason string) screen.Screen {
		return upsell.New(h.deps.Checkout, h.userID, reason)
	}
	h.deps.Performance.Upsell = h.deps.Filters.Upsell

	h.menu = components.NewMenu([]components.MenuItem{
		{Label: "Study", Action: h.push(func() screen.Screen {
			return filters.New(h.deps.Filters, h.deps.Criteria)
		})},
		{Label: "Review wrong answers", Action: h.push(func() screen.Screen {
			return quiz.New(h.deps.Quiz, review(h.deps.Criteria, filter.ReviewWrong))
		})},
		{Label: "Review bookmarks", Action: h.push(func() screen.Screen {
			return quiz.New(h.deps.Quiz, review(h.deps.Criteria, filter.ReviewBookmarks))
		})},
		{Label: "Performance", Action: h.push(func() screen.Screen {
			return performance.New(h.deps.Performance, h.userID())
		})},
		{Label: "Go Premium", Action: h.push(func() screen.Screen {
			return upsell.New(h.deps.Checkout, h.userID, "")
		})},
		{Label: "Quit", Action: func() tea.Cmd { return tea.Quit }},
	})
	return h
}

func review(c filter.Criteria, mode filter.ReviewMode) filter.Criteria {
	b := filter.NewBuilderFrom(c)
	b.SetReviewMode(mode)
	return b.Criteria()
}

func (h *HomeScreen) push(build func() screen.Screen) func() tea.Cmd {
	return func() tea.Cmd {
		s := build()
		return func() tea.Msg { return router.PushScreenMsg{Screen: s} }
	}
}

func (h *HomeScreen) userID() string {
	if id := h.deps.Identity(); id != nil {
		return id.ID
	}
	return ""
}

func (h *HomeScreen) Init() tea.Cmd {
	return h.loadDashboard()
}

// Resume refreshes the notices and the standing, which change as the
// user answers questions.
func (h *HomeScreen) Resume() tea.Cmd {
	return h.loadDashboard()
}

// loadDashboard reads what the home screen shows besides the menu. Each
// part is optional and a failure only leaves it out.
func (h *HomeScreen) loadDashboard() tea.Cmd {
	notices, perf, userID, log := h.deps.Notices, h.deps.Performance, h.userID(), h.log
	if notices == nil && (userID == "" || (perf.Scores == nil && perf.Profiles == nil)) {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var msg dashboardMsg
		if notices != nil {
			ns, err := notices.Active(ctx, time.Now())
			if err != nil {
				log.Warn("Failed to load notices", "error", err)
			}
			msg.Notices = ns
		}
		if userID == "" {
			return msg
		}
		if perf.Scores != nil {
			scores, err := perf.Scores.Scores(ctx)
			if err != nil {
				log.Warn("Failed to load ranking", "error", err)
			}
			msg.Percentile = stats.Percentile(stats.Rank(scores, userID, false))
		}
		if perf.Profiles != nil {
			if a, err := perf.Profiles.ByID(ctx, userID); err == nil {
				msg.TargetExam = a.TargetExam
			}
		}
		return msg
	}
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if msg, ok := msg.(dashboardMsg); ok {
		h.notices = msg.Notices
		h.percentile = msg.Percentile
		h.targetExam = msg.TargetExam
		return h, nil
	}
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(layout.Centered("Simulado", width, theme.Title))
	b.WriteString("\n")

	greeting := "Studying anonymously. Answers are not saved."
	if id := h.deps.Identity(); id != nil {
		greeting = fmt.Sprintf("Welcome back, %s.", id.DisplayName())
		if h.targetExam != "" {
			greeting += " Target: " + h.targetExam + "."
		}
	}
	b.WriteString(layout.Centered(greeting, width, theme.Subtitle))
	b.WriteString("\n")
	if h.percentile > 0 {
		b.WriteString(layout.Centered(fmt.Sprintf("You are in the top %d%% of candidates.", h.percentile), width, theme.Hint))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	compact := layout.IsCompactHeight(height + layout.HeaderHeight + layout.FooterHeight)
	if !compact {
		b.WriteString(layout.Centered(describe(h.deps.Criteria), width, theme.Hint))
		b.WriteString("\n\n")
	}

	menu := theme.Card.Width(min(width-8, 40)).Render(h.menu.View())
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, menu))

	if len(h.notices) > 0 && !compact {
		b.WriteString("\n\n")
		b.WriteString(renderNotices(h.notices, width))
	}
	return b.String()
}

func renderNotices(notices []store.Notice, width int) string {
	var b strings.Builder
	for i, n := range notices[:min(len(notices), maxNotices)] {
		if i > 0 {
			b.WriteString("\n")
		}
		line := noticeLabel(n.Kind) + "  " + lipgloss.NewStyle().Bold(true).Render(n.Title)
		if n.Description != "" {
			line += theme.Muted.Render(" · " + n.Description)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, line))
		if n.ActionURL != "" {
			// Unstyled so terminals can detect the link.
			b.WriteString("\n")
			b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, n.ActionURL))
		}
	}
	return b.String()
}

func noticeLabel(k store.NoticeKind) string {
	switch k {
	case store.NoticeExam:
		return theme.Warning.Render("EXAM")
	case store.NoticePromo:
		return theme.PremiumBadge.Render("PROMO")
	case store.NoticeUpdate:
		return theme.Hint.Render("UPDATE")
	default:
		return theme.Subtitle.Render("NEWS")
	}
}

// describe summarizes the criteria used by Study.
func describe(c filter.Criteria) string {
	parts := []string{fmt.Sprintf("%d questions", c.Limit)}
	if len(c.Disciplines) > 0 {
		parts = append(parts, strings.Join(c.Disciplines, ", "))
	}
	if len(c.Sources) > 0 {
		parts = append(parts, strings.Join(c.Sources, ", "))
	}
	if c.Exam != "" {
		parts = append(parts, c.Exam)
	}
	if c.SearchText != "" {
		parts = append(parts, fmt.Sprintf("%q", c.SearchText))
	}
	if c.OnlyNotAnswered {
		parts = append(parts, "not answered")
	}
	if c.OnlyWrong {
		parts = append(parts, "wrong only")
	}
	return strings.Join(parts, " · ")
}

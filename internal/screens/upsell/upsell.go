// Package upsell is the screen shown when a free user hits a premium
// feature. It has two exits: s opens the subscription flow and Esc leaves.
package upsell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/simulado/internal/billing"
	"github.com/abhisek/simulado/internal/screen"
	"github.com/abhisek/simulado/internal/subscription"
	"github.com/abhisek/simulado/internal/ui/components"
	"github.com/abhisek/simulado/internal/ui/layout"
	"github.com/abhisek/simulado/internal/ui/theme"
)

// CheckoutFunc creates a checkout and returns the URL to pay at.
type CheckoutFunc func(ctx context.Context, userID string, plan subscription.Plan) (string, error)

var errSignedOut = errors.New("sign in first with `simulado login`")

type checkoutMsg struct {
	URL string
	Err error
}

// Screen lists the paid plans.
type Screen struct {
	checkout CheckoutFunc
	userID   func() string
	reason   string

	cursor  int
	pending bool
	url     string
	err     error
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates the screen. reason explains what triggered it.
func New(checkout CheckoutFunc, userID func() string, reason string) *Screen {
	if userID == nil {
		userID = func() string { return "" }
	}
	return &Screen{checkout: checkout, userID: userID, reason: reason}
}

func (s *Screen) Init() tea.Cmd { return nil }

func (s *Screen) Title() string { return "Go Premium" }

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Plan"},
		{Key: "s", Description: "Subscribe"},
		{Key: "Esc", Description: "Not now"},
	}
}

// Plan returns the highlighted plan.
func (s *Screen) Plan() subscription.Plan {
	return subscription.PaidPlans[s.cursor]
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case checkoutMsg:
		s.pending = false
		s.url, s.err = msg.URL, msg.Err
		return s, nil

	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, components.Keys.Up):
			if s.cursor > 0 {
				s.cursor--
			}
		case key.Matches(msg, components.Keys.Down):
			if s.cursor < len(subscription.PaidPlans)-1 {
				s.cursor++
			}
		case key.Matches(msg, components.Keys.Subscribe):
			return s, s.subscribe()
		}
	}
	return s, nil
}

func (s *Screen) subscribe() tea.Cmd {
	if s.pending {
		return nil
	}
	userID := s.userID()
	if userID == "" {
		s.err = errSignedOut
		return nil
	}
	if s.checkout == nil {
		s.err = billing.ErrNotConfigured
		return nil
	}

	s.pending = true
	s.url, s.err = "", nil
	checkout, plan := s.checkout, s.Plan()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		url, err := checkout(ctx, userID, plan)
		return checkoutMsg{URL: url, Err: err}
	}
}

func (s *Screen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(layout.Centered("Simulado Premium", width, theme.Title))
	b.WriteString("\n")
	if s.reason != "" {
		b.WriteString(layout.Centered(s.reason, width, theme.Subtitle))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	var plans strings.Builder
	for i, p := range subscription.PaidPlans {
		offer := billing.Offers[p]
		line := fmt.Sprintf("%-12s R$ %6.2f   %dx R$ %.2f", p.Label(), offer.Price, offer.Installments,
			offer.Price/float64(offer.Installments))
		if i == s.cursor {
			plans.WriteString(theme.Selected.Render("▸ " + line))
		} else {
			plans.WriteString(theme.Unselected.Render("  " + line))
		}
		plans.WriteString("\n")
	}
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.Card.Render(plans.String())))
	b.WriteString("\n\n")

	switch {
	case s.pending:
		b.WriteString(layout.Centered("Creating checkout...", width, theme.Muted))
	case s.err != nil:
		b.WriteString(layout.Centered("Checkout unavailable: "+s.err.Error(), width,
			lipgloss.NewStyle().Foreground(theme.Error)))
	case s.url != "":
		b.WriteString(layout.Centered("Open this link to pay:", width, theme.Body))
		b.WriteString("\n")
		// Left as one plain run so terminals can detect and open it.
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.url))
		b.WriteString("\n")
		b.WriteString(layout.Centered("Your plan activates as soon as the payment is approved.", width, theme.Hint))
	default:
		b.WriteString(layout.Centered("Unlimited daily answers and the answered/wrong filters.", width, theme.Hint))
	}
	return b.String()
}

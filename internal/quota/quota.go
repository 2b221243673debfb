// Package quota enforces the daily answer limit of the free plan.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abhisek/simulado/internal/logging"
	"github.com/abhisek/simulado/internal/subscription"
)

// DailyLimit is how many questions a free user may answer per day.
const DailyLimit = 10

// ErrLimitReached is returned when the daily limit blocks an answer. It
// wraps subscription.ErrUpsell.
var ErrLimitReached = fmt.Errorf("daily answer limit reached: %w", subscription.ErrUpsell)

// AnswerCounter counts a user's durable answers since a point in time.
type AnswerCounter interface {
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// PlanSource reports whether a user has a paid plan.
type PlanSource interface {
	IsPremium(ctx context.Context, userID string) (bool, error)
}

// Option configures a Gate.
type Option func(*Gate)

// WithLimit overrides DailyLimit.
func WithLimit(n int) Option {
	return func(g *Gate) { g.limit = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// Gate tracks today's answer count for one user. The count is derived
// from the answer log on Load and Check and incremented locally on every
// Record, whether or not the durable write behind it succeeded.
type Gate struct {
	answers AnswerCounter
	plans   PlanSource
	limit   int
	now     func() time.Time
	log     *slog.Logger

	mu      sync.Mutex
	userID  string
	premium bool
	day     time.Time
	count   int
}

// NewGate creates a gate for an anonymous user; call Load to bind a user.
func NewGate(answers AnswerCounter, plans PlanSource, log *slog.Logger, opts ...Option) *Gate {
	g := &Gate{
		answers: answers,
		plans:   plans,
		limit:   DailyLimit,
		now:     time.Now,
		log:     logging.OrDiscard(log).With("component", "quota"),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Load binds the gate to userID and reads the plan and today's count.
// Anonymous users ("") are never limited.
func (g *Gate) Load(ctx context.Context, userID string) error {
	g.mu.Lock()
	g.userID = userID
	g.premium = false
	g.day = startOfDay(g.now())
	g.count = 0
	g.mu.Unlock()

	if userID == "" {
		return nil
	}
	return g.refresh(ctx)
}

// CanAnswer reports whether another answer is allowed right now.
func (g *Gate) CanAnswer() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollLocked()
	return g.allowedLocked()
}

// Check re-reads the plan and the durable count, then returns
// ErrLimitReached if the user may not answer. The durable count never
// lowers the local one. Read failures fall back to the local state.
func (g *Gate) Check(ctx context.Context) error {
	g.mu.Lock()
	anonymous := g.userID == ""
	g.mu.Unlock()
	if anonymous {
		return nil
	}

	if err := g.refresh(ctx); err != nil {
		g.log.Warn("quota refresh failed, using local count", "error", err)
	}
	if !g.CanAnswer() {
		return ErrLimitReached
	}
	return nil
}

// Record counts one answer submitted in this process.
func (g *Gate) Record() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.userID == "" {
		return
	}
	g.rollLocked()
	g.count++
}

// Count returns today's answer count.
func (g *Gate) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollLocked()
	return g.count
}

// Remaining returns how many answers are left today, or -1 when unlimited.
func (g *Gate) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.userID == "" || g.premium {
		return -1
	}
	g.rollLocked()
	return max(g.limit-g.count, 0)
}

// Premium reports whether the bound user has a paid plan.
func (g *Gate) Premium() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.premium
}

// Limit returns the daily limit for free users.
func (g *Gate) Limit() int {
	return g.limit
}

func (g *Gate) refresh(ctx context.Context) error {
	g.mu.Lock()
	userID := g.userID
	g.mu.Unlock()

	premium, err := g.plans.IsPremium(ctx, userID)
	if err != nil {
		return fmt.Errorf("read plan: %w", err)
	}

	since := startOfDay(g.now())
	n, err := g.answers.CountSince(ctx, userID, since)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.userID != userID {
		return nil
	}
	g.premium = premium
	if err != nil {
		return fmt.Errorf("count answers: %w", err)
	}
	g.rollLocked()
	if since.Equal(g.day) && n > g.count {
		g.count = n
	}
	return nil
}

func (g *Gate) allowedLocked() bool {
	return g.userID == "" || g.premium || g.count < g.limit
}

// rollLocked resets the count when the calendar day changed.
func (g *Gate) rollLocked() {
	today := startOfDay(g.now())
	if !today.Equal(g.day) {
		g.day = today
		g.count = 0
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

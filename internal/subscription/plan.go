// Package subscription resolves a user's plan tier.
package subscription

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUpsell signals that an action needs a premium plan. It marks a
// gated rejection, not a failure.
var ErrUpsell = errors.New("premium plan required")

// IsUpsell reports whether err is (or wraps) ErrUpsell.
func IsUpsell(err error) bool {
	return errors.Is(err, ErrUpsell)
}

// Plan is a subscription tier.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanMonthly    Plan = "monthly"
	PlanQuarterly  Plan = "quarterly"
	PlanSemiannual Plan = "semiannual"
)

// PaidPlans lists the plans that can be bought, cheapest first.
var PaidPlans = []Plan{PlanMonthly, PlanQuarterly, PlanSemiannual}

// ParsePlan parses a plan name. The empty string is the free plan.
func ParsePlan(s string) (Plan, error) {
	switch p := Plan(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PlanFree:
		return PlanFree, nil
	case PlanMonthly, PlanQuarterly, PlanSemiannual:
		return p, nil
	default:
		return "", fmt.Errorf("unknown plan %q", s)
	}
}

// IsPremium reports whether the plan is anything other than free.
func (p Plan) IsPremium() bool {
	return p != PlanFree && p != ""
}

// Duration is how long one purchase of the plan lasts.
func (p Plan) Duration() time.Duration {
	const day = 24 * time.Hour
	switch p {
	case PlanMonthly:
		return 30 * day
	case PlanQuarterly:
		return 90 * day
	case PlanSemiannual:
		return 180 * day
	default:
		return 0
	}
}

// Label returns a short display name.
func (p Plan) Label() string {
	switch p {
	case PlanMonthly:
		return "Mensal"
	case PlanQuarterly:
		return "Trimestral"
	case PlanSemiannual:
		return "Semestral"
	default:
		return "Gratuito"
	}
}

// Status is a stored plan together with its end date.
type Status struct {
	Plan   Plan
	EndsAt time.Time
}

// Effective returns the plan in force at now. A paid plan whose end
// date has passed is free again. A zero end date never expires.
func (s Status) Effective(now time.Time) Plan {
	if !s.Plan.IsPremium() {
		return PlanFree
	}
	if !s.EndsAt.IsZero() && !now.Before(s.EndsAt) {
		return PlanFree
	}
	return s.Plan
}

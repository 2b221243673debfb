package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/abhisek/simulado/internal/store"
)

// AccountLookup loads the stored account behind a user id.
type AccountLookup interface {
	ByID(ctx context.Context, id string) (*store.Account, error)
}

// Cache reads plan statuses through an in-process TTL cache. Webhook
// activations call Invalidate so the next read sees the new plan.
type Cache struct {
	accounts AccountLookup
	cache    *ristretto.Cache[string, Status]
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a plan cache holding up to maxUsers entries for ttl.
func NewCache(accounts AccountLookup, ttl time.Duration, maxUsers int64) (*Cache, error) {
	if maxUsers <= 0 {
		maxUsers = 1024
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, Status]{
		NumCounters: maxUsers * 10,
		MaxCost:     maxUsers,
		BufferItems: 64,
		// Every entry costs 1, so MaxCost is an entry count.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create plan cache: %w", err)
	}
	return &Cache{accounts: accounts, cache: c, ttl: ttl, now: time.Now}, nil
}

// Status returns the stored status for userID. Anonymous users and
// unknown accounts are free.
func (c *Cache) Status(ctx context.Context, userID string) (Status, error) {
	if userID == "" {
		return Status{Plan: PlanFree}, nil
	}
	if st, ok := c.cache.Get(userID); ok {
		return st, nil
	}

	acct, err := c.accounts.ByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Status{Plan: PlanFree}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("load plan: %w", err)
	}

	plan, err := ParsePlan(acct.Plan)
	if err != nil {
		plan = PlanFree
	}
	st := Status{Plan: plan, EndsAt: acct.PlanEndsAt}
	c.cache.SetWithTTL(userID, st, 1, c.ttl)
	return st, nil
}

// Plan returns the plan in force for userID.
func (c *Cache) Plan(ctx context.Context, userID string) (Plan, error) {
	st, err := c.Status(ctx, userID)
	if err != nil {
		return PlanFree, err
	}
	return st.Effective(c.now()), nil
}

// IsPremium reports whether userID currently has a paid plan.
func (c *Cache) IsPremium(ctx context.Context, userID string) (bool, error) {
	p, err := c.Plan(ctx, userID)
	return p.IsPremium(), err
}

// Invalidate drops the cached status for userID.
func (c *Cache) Invalidate(userID string) {
	c.cache.Del(userID)
}

// Wait blocks until pending cache writes are applied.
func (c *Cache) Wait() {
	c.cache.Wait()
}

// Close releases the cache.
func (c *Cache) Close() {
	c.cache.Close()
}

package subscription

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/simulado/internal/store"
)

type fakeAccounts struct {
	accounts map[string]*store.Account
	err      error
	calls    int
}

func (f *fakeAccounts) ByID(_ context.Context, id string) (*store.Account, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func newTestCache(t *testing.T, accounts AccountLookup) *Cache {
	t.Helper()
	c, err := NewCache(accounts, time.Minute, 100)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestParsePlan(t *testing.T) {
	tests := []struct {
		in      string
		want    Plan
		wantErr bool
	}{
		{"", PlanFree, false},
		{"free", PlanFree, false},
		{" Monthly ", PlanMonthly, false},
		{"quarterly", PlanQuarterly, false},
		{"semiannual", PlanSemiannual, false},
		{"lifetime", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlan(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlan_PremiumAndDuration(t *testing.T) {
	assert.False(t, PlanFree.IsPremium())
	for _, p := range PaidPlans {
		assert.True(t, p.IsPremium(), p)
	}
	assert.Equal(t, 30*24*time.Hour, PlanMonthly.Duration())
	assert.Equal(t, 90*24*time.Hour, PlanQuarterly.Duration())
	assert.Equal(t, 180*24*time.Hour, PlanSemiannual.Duration())
	assert.Zero(t, PlanFree.Duration())
}

func TestStatus_Effective(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, PlanMonthly, Status{Plan: PlanMonthly, EndsAt: now.Add(time.Hour)}.Effective(now))
	assert.Equal(t, PlanFree, Status{Plan: PlanMonthly, EndsAt: now}.Effective(now))
	assert.Equal(t, PlanQuarterly, Status{Plan: PlanQuarterly}.Effective(now))
	assert.Equal(t, PlanFree, Status{}.Effective(now))
}

func TestIsUpsell(t *testing.T) {
	assert.True(t, IsUpsell(ErrUpsell))
	assert.True(t, IsUpsell(fmt.Errorf("only wrong: %w", ErrUpsell)))
	assert.False(t, IsUpsell(errors.New("boom")))
	assert.False(t, IsUpsell(nil))
}

func TestCache_Plan(t *testing.T) {
	accounts := &fakeAccounts{accounts: map[string]*store.Account{
		"paid":    {ID: "paid", Plan: "monthly", PlanEndsAt: time.Now().Add(24 * time.Hour)},
		"expired": {ID: "expired", Plan: "semiannual", PlanEndsAt: time.Now().Add(-time.Hour)},
		"free":    {ID: "free", Plan: "free"},
	}}
	c := newTestCache(t, accounts)
	ctx := context.Background()

	tests := []struct {
		user string
		want Plan
	}{
		{"paid", PlanMonthly},
		{"expired", PlanFree},
		{"free", PlanFree},
		{"unknown", PlanFree},
		{"", PlanFree},
	}
	for _, tt := range tests {
		got, err := c.Plan(ctx, tt.user)
		require.NoError(t, err, tt.user)
		assert.Equal(t, tt.want, got, tt.user)
	}

	premium, err := c.IsPremium(ctx, "paid")
	require.NoError(t, err)
	assert.True(t, premium)
}

func TestCache_ReadsThroughAndInvalidates(t *testing.T) {
	acct := &store.Account{ID: "u1", Plan: "free"}
	accounts := &fakeAccounts{accounts: map[string]*store.Account{"u1": acct}}
	c := newTestCache(t, accounts)
	ctx := context.Background()

	p, err := c.Plan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, PlanFree, p)
	c.Wait()

	// The webhook flips the stored plan; the cached value is stale until invalidated.
	acct.Plan = "quarterly"
	_, err = c.Plan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, accounts.calls)

	c.Invalidate("u1")
	p, err = c.Plan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, PlanQuarterly, p)
	assert.Equal(t, 2, accounts.calls)
}

func TestCache_LookupError(t *testing.T) {
	accounts := &fakeAccounts{err: errors.New("db down")}
	c := newTestCache(t, accounts)

	p, err := c.Plan(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, PlanFree, p)
}

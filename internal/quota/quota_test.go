package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/simulado/internal/subscription"
)

type fakeAnswers struct {
	count int
	err   error
	since time.Time
	calls int
}

func (f *fakeAnswers) CountSince(_ context.Context, _ string, since time.Time) (int, error) {
	f.calls++
	f.since = since
	return f.count, f.err
}

type fakePlans struct {
	premium bool
	err     error
}

func (f *fakePlans) IsPremium(context.Context, string) (bool, error) {
	return f.premium, f.err
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestGate(answers *fakeAnswers, plans *fakePlans, c *clock) *Gate {
	return NewGate(answers, plans, nil, WithClock(c.now))
}

func TestGate_CapAtTen(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 4, 15, 0, 0, 0, time.Local)}
	answers := &fakeAnswers{}
	g := newTestGate(answers, &fakePlans{}, c)
	ctx := context.Background()

	require.NoError(t, g.Load(ctx, "u1"))
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.Local), answers.since)

	prev := g.Count()
	for i := 1; i <= DailyLimit; i++ {
		require.NoError(t, g.Check(ctx), "answer %d", i)
		g.Record()
		assert.GreaterOrEqual(t, g.Count(), prev)
		prev = g.Count()
		assert.Equal(t, i < DailyLimit, g.CanAnswer(), "after answer %d", i)
	}

	err := g.Check(ctx)
	assert.ErrorIs(t, err, ErrLimitReached)
	assert.True(t, subscription.IsUpsell(err))
	assert.Equal(t, 0, g.Remaining())
}

func TestGate_LoadWithDurableCount(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 4, 9, 0, 0, 0, time.Local)}
	g := newTestGate(&fakeAnswers{count: 10}, &fakePlans{}, c)

	require.NoError(t, g.Load(context.Background(), "u1"))
	assert.False(t, g.CanAnswer())
	assert.Equal(t, 10, g.Count())
}

func TestGate_CheckTakesTheHigherCount(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 4, 9, 0, 0, 0, time.Local)}
	answers := &fakeAnswers{count: 3}
	g := newTestGate(answers, &fakePlans{}, c)
	ctx := context.Background()
	require.NoError(t, g.Load(ctx, "u1"))

	// Another device answered meanwhile.
	answers.count = 9
	require.NoError(t, g.Check(ctx))
	assert.Equal(t, 9, g.Count())

	// A durable count that lags behind never lowers the local one.
	g.Record()
	answers.count = 5
	assert.ErrorIs(t, g.Check(ctx), ErrLimitReached)
	assert.Equal(t, 10, g.Count())
}

func TestGate_RefreshFailureUsesLocalCount(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 4, 9, 0, 0, 0, time.Local)}
	answers := &fakeAnswers{count: 2}
	g := newTestGate(answers, &fakePlans{}, c)
	ctx := context.Background()
	require.NoError(t, g.Load(ctx, "u1"))

	answers.err = errors.New("offline")
	assert.NoError(t, g.Check(ctx))
	assert.Equal(t, 2, g.Count())
}

func TestGate_PremiumIsUnlimited(t *testing.T) {
	c := &clock{t: time.Now()}
	g := newTestGate(&fakeAnswers{count: 50}, &fakePlans{premium: true}, c)
	ctx := context.Background()
	require.NoError(t, g.Load(ctx, "u1"))

	assert.True(t, g.Premium())
	assert.True(t, g.CanAnswer())
	assert.NoError(t, g.Check(ctx))
	assert.Equal(t, -1, g.Remaining())
}

func TestGate_UpgradeSeenOnCheck(t *testing.T) {
	c := &clock{t: time.Now()}
	plans := &fakePlans{}
	g := newTestGate(&fakeAnswers{count: 10}, plans, c)
	ctx := context.Background()
	require.NoError(t, g.Load(ctx, "u1"))
	require.False(t, g.CanAnswer())

	plans.premium = true
	assert.NoError(t, g.Check(ctx))
}

func TestGate_AnonymousNeverLimited(t *testing.T) {
	answers := &fakeAnswers{count: 100}
	g := newTestGate(answers, &fakePlans{}, &clock{t: time.Now()})
	ctx := context.Background()
	require.NoError(t, g.Load(ctx, ""))

	for i := 0; i < 20; i++ {
		require.NoError(t, g.Check(ctx))
		g.Record()
	}
	assert.True(t, g.CanAnswer())
	assert.Zero(t, g.Count())
	assert.Zero(t, answers.calls)
}

func TestGate_DayRollover(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 4, 23, 59, 0, 0, time.Local)}
	answers := &fakeAnswers{}
	g := newTestGate(answers, &fakePlans{}, c)
	ctx := context.Background()
	require.NoError(t, g.Load(ctx, "u1"))

	for i := 0; i < DailyLimit; i++ {
		g.Record()
	}
	require.False(t, g.CanAnswer())

	c.t = c.t.Add(2 * time.Minute)
	assert.True(t, g.CanAnswer())
	assert.Zero(t, g.Count())
	assert.NoError(t, g.Check(ctx))
}

func TestGate_WithLimit(t *testing.T) {
	g := NewGate(&fakeAnswers{}, &fakePlans{}, nil, WithLimit(2))
	require.NoError(t, g.Load(context.Background(), "u1"))
	g.Record()
	g.Record()
	assert.False(t, g.CanAnswer())
	assert.Equal(t, 2, g.Limit())
}

package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/simulado/internal/stats"
	"github.com/abhisek/simulado/internal/store"
	"github.com/abhisek/simulado/internal/subscription"
)

func parsed(t *testing.T, register func(*cobra.Command), args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	register(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestProfileUpdate(t *testing.T) {
	u, err := profileUpdate(parsed(t, registerProfileFlags))
	require.NoError(t, err)
	assert.True(t, u.IsZero())

	u, err = profileUpdate(parsed(t, registerProfileFlags, "--name", "Bia", "--private"))
	require.NoError(t, err)
	require.NotNil(t, u.DisplayName)
	assert.Equal(t, "Bia", *u.DisplayName)
	assert.Nil(t, u.TargetExam)
	require.NotNil(t, u.IsPublic)
	assert.False(t, *u.IsPublic)

	u, err = profileUpdate(parsed(t, registerProfileFlags, "--target-exam", "PC-SP", "--public"))
	require.NoError(t, err)
	assert.Equal(t, "PC-SP", *u.TargetExam)
	assert.True(t, *u.IsPublic)

	_, err = profileUpdate(parsed(t, registerProfileFlags, "--public", "--private"))
	assert.Error(t, err)
}

func TestRequirePremium(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	err := requirePremium(ctx, e, "ranking")
	assert.True(t, subscription.IsUpsell(err))

	_, err = e.session.Register(ctx, "ana@example.com", "password123", "Ana")
	require.NoError(t, err)
	require.NoError(t, e.store.Accounts().UpdatePlan(ctx, e.session.UserID(), store.PlanUpdate{
		Plan:   string(subscription.PlanMonthly),
		EndsAt: time.Now().Add(24 * time.Hour),
	}))
	e.plans.Invalidate(e.session.UserID())
	e.plans.Wait()
	assert.NoError(t, requirePremium(ctx, e, "ranking"))
}

func TestProfile_RefreshUpdatesIdentity(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_, err := e.session.Register(ctx, "ana@example.com", "password123", "Ana")
	require.NoError(t, err)

	name := "Ana Paula"
	require.NoError(t, e.store.Accounts().UpdateProfile(ctx, e.session.UserID(), store.ProfileUpdate{DisplayName: &name}))
	require.NoError(t, e.session.Refresh(ctx))
	assert.Equal(t, "Ana Paula", e.session.Current().DisplayName())

	acct, err := e.store.Accounts().ByID(ctx, e.session.UserID())
	require.NoError(t, err)
	var out bytes.Buffer
	writeProfile(&out, acct)
	assert.Contains(t, out.String(), "Name:        Ana Paula")
	assert.Contains(t, out.String(), "Target exam: -")
	assert.Contains(t, out.String(), "Ranking:     private")
}

func TestWriteRanking(t *testing.T) {
	scores := []store.UserScore{
		{UserID: "a", DisplayName: "Ana", IsPublic: true, Total: 10, Correct: 9},
		{UserID: "b", DisplayName: "Bia", Total: 10, Correct: 8},
		{UserID: "c", DisplayName: "Cid", IsPublic: true, Total: 10, Correct: 7},
		{UserID: "d", DisplayName: "Dan", Total: 10, Correct: 1},
	}
	var out bytes.Buffer
	writeRanking(&out, stats.Rank(scores, "d", true), 2)

	got := out.String()
	assert.Contains(t, got, "Ana")
	assert.Contains(t, got, stats.AnonymousName)
	assert.NotContains(t, got, "Cid")
	assert.Contains(t, got, "  ...\n")
	assert.Contains(t, got, "Dan (you)")
	assert.Contains(t, got, "top 100%")

	out.Reset()
	writeRanking(&out, nil, 10)
	assert.Equal(t, "Nobody has answered questions yet.\n", out.String())
}

func TestWriteEvolution(t *testing.T) {
	var out bytes.Buffer
	writeEvolution(&out, []stats.Point{{Label: "Mon", Correct: 3, Total: 4}}, stats.Week, "")
	assert.Equal(t, "Accuracy, last 7 days, all subjects\nMon           3/4       75.0%\n", out.String())

	out.Reset()
	writeEvolution(&out, nil, stats.Month, "Português")
	assert.Contains(t, out.String(), "last month, Português\nNo answers in this period.")
}

func TestNoticeFromFlags(t *testing.T) {
	n, err := noticeFromFlags(parsed(t, registerNoticeFlags,
		"--kind", "exam", "--description", "Inscrições abertas", "--priority", "3", "--for", "48h"), "Edital PC-SP")
	require.NoError(t, err)
	assert.Equal(t, store.NoticeExam, n.Kind)
	assert.Equal(t, "Edital PC-SP", n.Title)
	assert.Equal(t, 3, n.Priority)
	assert.True(t, n.Active)
	assert.Equal(t, 48*time.Hour, n.EndsAt.Sub(n.CreatedAt))

	n, err = noticeFromFlags(parsed(t, registerNoticeFlags), "Novidades")
	require.NoError(t, err)
	assert.Equal(t, store.NoticeNews, n.Kind)
	assert.True(t, n.EndsAt.IsZero())

	_, err = noticeFromFlags(parsed(t, registerNoticeFlags, "--kind", "ad"), "x")
	assert.Error(t, err)
}

func TestNotices_PublishAndList(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	n, err := noticeFromFlags(parsed(t, registerNoticeFlags, "--url", "https://example.com"), "Novidades")
	require.NoError(t, err)
	require.NoError(t, e.store.Notices().Create(ctx, n))
	require.NoError(t, e.store.Notices().SetActive(ctx, n.ID, false))

	all, err := e.store.Notices().List(ctx)
	require.NoError(t, err)
	var out bytes.Buffer
	writeNotices(&out, all)
	assert.Contains(t, out.String(), "Novidades (hidden)")
	assert.Contains(t, out.String(), "https://example.com")

	active, err := e.store.Notices().Active(ctx, time.Now())
	require.NoError(t, err)
	out.Reset()
	writeNotices(&out, active)
	assert.Equal(t, "No notices.\n", out.String())
}

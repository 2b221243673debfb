package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var accountColumns = []string{
	colID, "email", "password_hash", colDisplayName, "plan",
	"plan_ends_at", "subscription_id", "customer_id", colCreatedAt,
	colTargetExam, colIsPublic,
}

type accountRepo struct {
	s *Store
}

func (r *accountRepo) Create(ctx context.Context, a *Account) error {
	if _, err := r.ByEmail(ctx, a.Email); err == nil {
		return fmt.Errorf("account %s: %w", a.Email, ErrDuplicate)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.Plan == "" {
		a.Plan = "free"
	}

	query, args := r.s.sql().
		Insert(tableAccounts).
		Columns(accountColumns...).
		Values(
			a.ID, strings.ToLower(a.Email), a.PasswordHash, a.DisplayName, a.Plan,
			unixMilli(a.PlanEndsAt), a.SubscriptionID, a.CustomerID, a.CreatedAt.UnixMilli(),
			a.TargetExam, a.IsPublic,
		).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *accountRepo) ByEmail(ctx context.Context, email string) (*Account, error) {
	return r.one(ctx, entsql.EQ("email", strings.ToLower(email)))
}

func (r *accountRepo) ByID(ctx context.Context, id string) (*Account, error) {
	return r.one(ctx, entsql.EQ(colID, id))
}

func (r *accountRepo) UpdatePlan(ctx context.Context, id string, u PlanUpdate) error {
	query, args := r.s.sql().
		Update(tableAccounts).
		Set("plan", u.Plan).
		Set("plan_ends_at", unixMilli(u.EndsAt)).
		Set("subscription_id", u.SubscriptionID).
		Set("customer_id", u.CustomerID).
		Where(entsql.EQ(colID, id)).
		Query()

	res, err := r.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *accountRepo) UpdateProfile(ctx context.Context, id string, u ProfileUpdate) error {
	if u.IsZero() {
		_, err := r.ByID(ctx, id)
		return err
	}
	upd := r.s.sql().Update(tableAccounts)
	if u.DisplayName != nil {
		upd.Set(colDisplayName, strings.TrimSpace(*u.DisplayName))
	}
	if u.TargetExam != nil {
		upd.Set(colTargetExam, strings.TrimSpace(*u.TargetExam))
	}
	if u.IsPublic != nil {
		upd.Set(colIsPublic, *u.IsPublic)
	}
	query, args := upd.Where(entsql.EQ(colID, id)).Query()

	res, err := r.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *accountRepo) one(ctx context.Context, p *entsql.Predicate) (*Account, error) {
	query, args := r.s.sql().
		Select(accountColumns...).
		From(entsql.Table(tableAccounts)).
		Where(p).
		Limit(1).
		Query()

	var (
		a                 Account
		endsAt, createdAt int64
	)
	err := r.s.db.QueryRowContext(ctx, query, args...).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.DisplayName, &a.Plan,
		&endsAt, &a.SubscriptionID, &a.CustomerID, &createdAt,
		&a.TargetExam, &a.IsPublic,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	a.PlanEndsAt = fromUnixMilli(endsAt)
	a.CreatedAt = time.UnixMilli(createdAt)
	return &a, nil
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var noticeColumns = []string{
	colID, "kind", "title", "description", "action_url", "priority",
	"active", "starts_at", "ends_at", colCreatedAt,
}

type noticeRepo struct {
	s *Store
}

func (r *noticeRepo) Create(ctx context.Context, n *Notice) error {
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("create notice: title is required")
	}
	if n.Kind == "" {
		n.Kind = NoticeNews
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	query, args := r.s.sql().
		Insert(tableNotices).
		Columns(noticeColumns[1:]...).
		Values(
			string(n.Kind), n.Title, n.Description, n.ActionURL, n.Priority,
			n.Active, unixMilli(n.StartsAt), unixMilli(n.EndsAt), n.CreatedAt.UnixMilli(),
		).
		Returning(colID).
		Query()

	if err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&n.ID); err != nil {
		return fmt.Errorf("create notice: %w", err)
	}
	return nil
}

func (r *noticeRepo) Active(ctx context.Context, now time.Time) ([]Notice, error) {
	ms := now.UnixMilli()
	sel := r.s.sql().
		Select(noticeColumns...).
		From(entsql.Table(tableNotices)).
		Where(entsql.And(
			entsql.EQ("active", true),
			entsql.LTE("starts_at", ms),
			entsql.Or(entsql.EQ("ends_at", 0), entsql.GT("ends_at", ms)),
		)).
		OrderBy(entsql.Desc("priority"), colID)
	return r.query(ctx, sel)
}

func (r *noticeRepo) List(ctx context.Context) ([]Notice, error) {
	sel := r.s.sql().
		Select(noticeColumns...).
		From(entsql.Table(tableNotices)).
		OrderBy(entsql.Desc(colCreatedAt), entsql.Desc(colID))
	return r.query(ctx, sel)
}

func (r *noticeRepo) SetActive(ctx context.Context, id int64, active bool) error {
	query, args := r.s.sql().
		Update(tableNotices).
		Set("active", active).
		Where(entsql.EQ(colID, id)).
		Query()

	res, err := r.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update notice: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update notice: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("notice %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *noticeRepo) query(ctx context.Context, sel *entsql.Selector) ([]Notice, error) {
	query, args := sel.Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notices: %w", err)
	}
	defer rows.Close()

	var notices []Notice
	for rows.Next() {
		var (
			n                         Notice
			kind                      string
			startsAt, endsAt, created int64
		)
		if err := rows.Scan(
			&n.ID, &kind, &n.Title, &n.Description, &n.ActionURL, &n.Priority,
			&n.Active, &startsAt, &endsAt, &created,
		); err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		n.Kind = NoticeKind(kind)
		n.StartsAt = fromUnixMilli(startsAt)
		n.EndsAt = fromUnixMilli(endsAt)
		n.CreatedAt = time.UnixMilli(created)
		notices = append(notices, n)
	}
	return notices, rows.Err()
}

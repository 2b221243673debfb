package store

// Answer log.
//
// Answer events are append-only: the study flow never updates or deletes
// them, and re-answering a question appends another row. Ordering uses
// answered_at first and the autoincrement id second, so two events in the
// same millisecond still have a stable recency order.

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type answerRepo struct {
	s *Store
}

func (r *answerRepo) Append(ctx context.Context, ev AnswerEvent) error {
	if ev.AnsweredAt.IsZero() {
		ev.AnsweredAt = time.Now()
	}
	query, args := r.s.sql().
		Insert(tableAnswerEvents).
		Columns(colUserID, colQuestionID, colCorrect, colSubject, colAnsweredAt).
		Values(ev.UserID, ev.QuestionID, ev.Correct, ev.Subject, ev.AnsweredAt.UnixMilli()).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append answer event: %w", err)
	}
	return nil
}

func (r *answerRepo) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	query, args := r.s.sql().
		Select().
		Count().
		From(entsql.Table(tableAnswerEvents)).
		Where(entsql.And(
			entsql.EQ(colUserID, userID),
			entsql.GTE(colAnsweredAt, since.UnixMilli()),
		)).
		Query()

	var n int
	if err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count answers: %w", err)
	}
	return n, nil
}

func (r *answerRepo) RecentIncorrect(ctx context.Context, userID string, limit int) ([]int64, error) {
	sel := r.s.sql().
		Select(colQuestionID).
		From(entsql.Table(tableAnswerEvents)).
		Where(entsql.And(
			entsql.EQ(colUserID, userID),
			entsql.EQ(colCorrect, false),
		)).
		OrderBy(entsql.Desc(colAnsweredAt), entsql.Desc(colID))
	if limit > 0 {
		sel.Limit(limit)
	}
	return r.ids(ctx, sel)
}

func (r *answerRepo) AnsweredIDs(ctx context.Context, userID string, limit int) ([]int64, error) {
	sel := r.s.sql().
		Select(colQuestionID).
		From(entsql.Table(tableAnswerEvents)).
		Where(entsql.EQ(colUserID, userID)).
		GroupBy(colQuestionID).
		OrderExpr(entsql.Expr("MAX(answered_at) DESC"))
	if limit > 0 {
		sel.Limit(limit)
	}
	return r.ids(ctx, sel)
}

func (r *answerRepo) ListByUser(ctx context.Context, userID string) ([]AnswerEvent, error) {
	query, args := r.s.sql().
		Select(colID, colUserID, colQuestionID, colCorrect, colSubject, colAnsweredAt).
		From(entsql.Table(tableAnswerEvents)).
		Where(entsql.EQ(colUserID, userID)).
		OrderBy(colAnsweredAt, colID).
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var events []AnswerEvent
	for rows.Next() {
		var (
			ev AnswerEvent
			ms int64
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.QuestionID, &ev.Correct, &ev.Subject, &ms); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		ev.AnsweredAt = time.UnixMilli(ms)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *answerRepo) ids(ctx context.Context, sel *entsql.Selector) ([]int64, error) {
	query, args := sel.Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query question ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan question id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

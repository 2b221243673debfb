package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type bookmarkRepo struct {
	s *Store
}

func (r *bookmarkRepo) Exists(ctx context.Context, userID string, questionID int64) (bool, error) {
	query, args := r.s.sql().
		Select().
		Count().
		From(entsql.Table(tableBookmarks)).
		Where(pairPredicate(userID, questionID)).
		Query()

	var n int
	if err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("check bookmark: %w", err)
	}
	return n > 0, nil
}

func (r *bookmarkRepo) Create(ctx context.Context, userID string, questionID int64) error {
	query, args := r.s.sql().
		Insert(tableBookmarks).
		Columns(colUserID, colQuestionID, colCreatedAt).
		Values(userID, questionID, time.Now().UnixMilli()).
		OnConflict(entsql.ConflictColumns(colUserID, colQuestionID), entsql.DoNothing()).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create bookmark: %w", err)
	}
	return nil
}

func (r *bookmarkRepo) Delete(ctx context.Context, userID string, questionID int64) error {
	query, args := r.s.sql().
		Delete(tableBookmarks).
		Where(pairPredicate(userID, questionID)).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return nil
}

func (r *bookmarkRepo) List(ctx context.Context, userID string) ([]int64, error) {
	query, args := r.s.sql().
		Select(colQuestionID).
		From(entsql.Table(tableBookmarks)).
		Where(entsql.EQ(colUserID, userID)).
		OrderBy(entsql.Desc(colCreatedAt), entsql.Desc(colID)).
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func pairPredicate(userID string, questionID int64) *entsql.Predicate {
	return entsql.And(
		entsql.EQ(colUserID, userID),
		entsql.EQ(colQuestionID, questionID),
	)
}

package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

type rankingRepo struct {
	s *Store
}

func (r *rankingRepo) Scores(ctx context.Context) ([]UserScore, error) {
	d := r.s.sql()
	ae := d.Table(tableAnswerEvents).As("ae")
	acc := d.Table(tableAccounts).As("acc")

	correct := fmt.Sprintf("SUM(CASE WHEN %s THEN 1 ELSE 0 END)", ae.C(colCorrect))
	query, args := d.
		Select(acc.C(colID), acc.C(colDisplayName), acc.C(colIsPublic), entsql.Count("*"), correct).
		From(ae).
		Join(acc).On(ae.C(colUserID), acc.C(colID)).
		GroupBy(acc.C(colID), acc.C(colDisplayName), acc.C(colIsPublic)).
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var scores []UserScore
	for rows.Next() {
		var sc UserScore
		if err := rows.Scan(&sc.UserID, &sc.DisplayName, &sc.IsPublic, &sc.Total, &sc.Correct); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

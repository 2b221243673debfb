package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/simulado/internal/qbank"
)

var questionColumns = []string{
	colID, colExam, colSubject, colLabel, colText,
	colOptionA, colOptionB, colOptionC, colOptionD,
	colCorrect, colSource,
}

type questionRepo struct {
	s *Store
}

func (r *questionRepo) DistinctFacetValues(ctx context.Context, col FacetColumn, scope FacetScope) ([]string, error) {
	switch col {
	case FacetSubject, FacetSource, FacetExam:
	default:
		return nil, fmt.Errorf("unknown facet column %q", col)
	}

	preds := []*entsql.Predicate{entsql.NEQ(string(col), "")}
	if len(scope.Subjects) > 0 {
		preds = append(preds, entsql.In(colSubject, anys(scope.Subjects)...))
	}
	if scope.RestrictIDs {
		preds = append(preds, entsql.In(colID, anys(scope.IDs)...))
	}

	query, args := r.s.sql().
		Select(string(col)).
		Distinct().
		From(entsql.Table(tableQuestions)).
		Where(entsql.And(preds...)).
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s values: %w", col, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s value: %w", col, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (r *questionRepo) ByIDs(ctx context.Context, ids []int64) ([]qbank.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sel := r.s.sql().
		Select(questionColumns...).
		From(entsql.Table(tableQuestions)).
		Where(entsql.In(colID, anys(ids)...))
	return r.query(ctx, sel)
}

func (r *questionRepo) Random(ctx context.Context, p RandomParams) ([]qbank.Question, error) {
	preds := filterPredicates(p.QuestionFilter)
	if len(p.ExcludeIDs) > 0 {
		preds = append(preds, entsql.NotIn(colID, anys(p.ExcludeIDs)...))
	}
	if p.WrongFor != "" {
		preds = append(preds, entsql.In(colID, r.wrongAnswers(p.WrongFor)))
	}

	sel := r.s.sql().
		Select(questionColumns...).
		From(entsql.Table(tableQuestions)).
		OrderExpr(entsql.Expr("RANDOM()"))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if p.Limit > 0 {
		sel.Limit(p.Limit)
	}
	return r.query(ctx, sel)
}

func (r *questionRepo) Count(ctx context.Context, p CountParams) (int, error) {
	preds := filterPredicates(p.QuestionFilter)
	if p.UserID != "" {
		if p.OnlyWrong {
			preds = append(preds, entsql.In(colID, r.wrongAnswers(p.UserID)))
		}
		if p.OnlyNotAnswered {
			preds = append(preds, entsql.NotIn(colID, r.answered(p.UserID)))
		}
	}

	sel := r.s.sql().Select().Count().From(entsql.Table(tableQuestions))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}

	query, args := sel.Query()
	var n int
	if err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

func (r *questionRepo) Save(ctx context.Context, questions []qbank.Question) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}

	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range questions {
		query, args := r.s.sql().
			Insert(tableQuestions).
			Columns(questionColumns...).
			Values(
				q.ID, q.Exam, q.Subject, q.Label, q.Text,
				q.Options[0].Text, q.Options[1].Text, q.Options[2].Text, q.Options[3].Text,
				string(q.Correct), q.Source,
			).
			OnConflict(entsql.ConflictColumns(colID), entsql.ResolveWithNewValues()).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("save question %d: %w", q.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(questions), nil
}

func (r *questionRepo) All(ctx context.Context) ([]qbank.Question, error) {
	sel := r.s.sql().
		Select(questionColumns...).
		From(entsql.Table(tableQuestions)).
		OrderBy(colID)
	return r.query(ctx, sel)
}

// wrongAnswers selects the question ids the user answered incorrectly.
func (r *questionRepo) wrongAnswers(userID string) *entsql.Selector {
	t := r.s.sql().Table(tableAnswerEvents)
	return r.s.sql().
		Select(t.C(colQuestionID)).
		From(t).
		Where(entsql.And(
			entsql.EQ(t.C(colUserID), userID),
			entsql.EQ(t.C(colCorrect), false),
		))
}

// answered selects every question id the user has answered.
func (r *questionRepo) answered(userID string) *entsql.Selector {
	t := r.s.sql().Table(tableAnswerEvents)
	return r.s.sql().
		Select(t.C(colQuestionID)).
		From(t).
		Where(entsql.EQ(t.C(colUserID), userID))
}

func (r *questionRepo) query(ctx context.Context, sel *entsql.Selector) ([]qbank.Question, error) {
	query, args := sel.Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []qbank.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func scanQuestion(rows *sql.Rows) (qbank.Question, error) {
	var (
		q          qbank.Question
		a, b, c, d string
		correct    string
	)
	err := rows.Scan(&q.ID, &q.Exam, &q.Subject, &q.Label, &q.Text, &a, &b, &c, &d, &correct, &q.Source)
	if err != nil {
		return qbank.Question{}, fmt.Errorf("scan question: %w", err)
	}
	q.Options = qbank.NewOptions(a, b, c, d)
	q.Correct = qbank.OptionID(correct)
	return q, nil
}

// filterPredicates turns the facet filters into WHERE predicates.
func filterPredicates(f QuestionFilter) []*entsql.Predicate {
	var preds []*entsql.Predicate
	if len(f.Subjects) > 0 {
		preds = append(preds, entsql.In(colSubject, anys(f.Subjects)...))
	}
	if len(f.Sources) > 0 {
		preds = append(preds, entsql.In(colSource, anys(f.Sources)...))
	}
	if f.Exam != "" {
		preds = append(preds, entsql.EQ(colExam, f.Exam))
	}
	if f.SearchText != "" {
		preds = append(preds, entsql.ContainsFold(colText, f.SearchText))
	}
	return preds
}

func anys[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

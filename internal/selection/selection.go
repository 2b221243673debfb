// Package selection turns filter criteria or a review mode into the
// ordered list of questions a study session works through.
package selection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abhisek/simulado/internal/filter"
	"github.com/abhisek/simulado/internal/logging"
	"github.com/abhisek/simulado/internal/qbank"
	"github.com/abhisek/simulado/internal/store"
)

const (
	// WrongReviewCap bounds how many recent incorrect answers feed the
	// wrong-answers review, whatever the criteria limit says.
	WrongReviewCap = 50
	// ExcludeCap bounds the answered-question exclusion list. Past it,
	// already answered questions may come back.
	ExcludeCap = 1000
)

// QuestionStore hydrates and samples questions.
type QuestionStore interface {
	ByIDs(ctx context.Context, ids []int64) ([]qbank.Question, error)
	Random(ctx context.Context, p store.RandomParams) ([]qbank.Question, error)
}

// AnswerLog reads the user's answer history.
type AnswerLog interface {
	RecentIncorrect(ctx context.Context, userID string, limit int) ([]int64, error)
	AnsweredIDs(ctx context.Context, userID string, limit int) ([]int64, error)
}

// BookmarkStore lists the user's bookmarks, newest first.
type BookmarkStore interface {
	List(ctx context.Context, userID string) ([]int64, error)
}

// EmptyReason says why a resolution produced no questions.
type EmptyReason int

const (
	NotEmpty EmptyReason = iota
	NoWrongAnswers
	NoBookmarks
	NoMatches
)

// Message is the user-facing text for the empty state.
func (r EmptyReason) Message() string {
	switch r {
	case NoWrongAnswers:
		return "No pending errors. Every question you missed has been reviewed."
	case NoBookmarks:
		return "No bookmarks yet. Press b on a question to save it for later."
	case NoMatches:
		return "No questions match these filters."
	default:
		return ""
	}
}

// Result is a resolved question set.
type Result struct {
	Questions []qbank.Question
	Mode      filter.ReviewMode
	Empty     EmptyReason
}

// IsEmpty reports whether no questions were resolved.
func (r Result) IsEmpty() bool {
	return len(r.Questions) == 0
}

// FetchError is a failed read while resolving. No partial result is
// returned alongside it; the caller can retry.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("resolve questions: %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports that the resolution can be attempted again.
func (e *FetchError) Retryable() bool { return true }

// Resolver resolves question sets.
type Resolver struct {
	questions QuestionStore
	answers   AnswerLog
	bookmarks BookmarkStore
	log       *slog.Logger
}

// NewResolver creates a resolver.
func NewResolver(questions QuestionStore, answers AnswerLog, bookmarks BookmarkStore, log *slog.Logger) *Resolver {
	return &Resolver{
		questions: questions,
		answers:   answers,
		bookmarks: bookmarks,
		log:       logging.OrDiscard(log).With("component", "selection"),
	}
}

// Resolve produces the question set for the criteria. The review mode,
// when set, takes priority and the facet filters are ignored.
func (r *Resolver) Resolve(ctx context.Context, userID string, c filter.Criteria) (Result, error) {
	switch c.ReviewMode {
	case filter.ReviewWrong:
		return r.review(ctx, userID, c.ReviewMode, NoWrongAnswers)
	case filter.ReviewBookmarks:
		return r.review(ctx, userID, c.ReviewMode, NoBookmarks)
	default:
		return r.standard(ctx, userID, c)
	}
}

// ReviewIDs returns the question ids a review mode draws from, in
// presentation order. Anonymous users have none.
func (r *Resolver) ReviewIDs(ctx context.Context, userID string, mode filter.ReviewMode) ([]int64, error) {
	if userID == "" {
		return nil, nil
	}
	switch mode {
	case filter.ReviewWrong:
		ids, err := r.answers.RecentIncorrect(ctx, userID, WrongReviewCap)
		if err != nil {
			return nil, &FetchError{Op: "list wrong answers", Err: err}
		}
		return distinct(ids), nil
	case filter.ReviewBookmarks:
		ids, err := r.bookmarks.List(ctx, userID)
		if err != nil {
			return nil, &FetchError{Op: "list bookmarks", Err: err}
		}
		return ids, nil
	default:
		return nil, nil
	}
}

func (r *Resolver) review(ctx context.Context, userID string, mode filter.ReviewMode, empty EmptyReason) (Result, error) {
	ids, err := r.ReviewIDs(ctx, userID, mode)
	if err != nil {
		return Result{}, err
	}
	if len(ids) == 0 {
		return Result{Mode: mode, Empty: empty}, nil
	}

	qs, err := r.questions.ByIDs(ctx, ids)
	if err != nil {
		return Result{}, &FetchError{Op: "load questions", Err: err}
	}
	qs = inOrder(ids, qs)
	if len(qs) < len(ids) {
		r.log.Warn("review ids without a question", "mode", mode.String(), "ids", len(ids), "found", len(qs))
	}

	res := Result{Questions: qs, Mode: mode}
	if len(qs) == 0 {
		res.Empty = empty
	}
	return res, nil
}

func (r *Resolver) standard(ctx context.Context, userID string, c filter.Criteria) (Result, error) {
	var exclude []int64
	if c.OnlyNotAnswered && userID != "" {
		ids, err := r.answers.AnsweredIDs(ctx, userID, ExcludeCap)
		if err != nil {
			return Result{}, &FetchError{Op: "list answered questions", Err: err}
		}
		exclude = ids
	}

	qs, err := r.questions.Random(ctx, RandomParams(c, userID, exclude))
	if err != nil {
		return Result{}, &FetchError{Op: "sample questions", Err: err}
	}

	res := Result{Questions: qs}
	if len(qs) == 0 {
		res.Empty = NoMatches
	}
	return res, nil
}

// RandomParams builds the randomized-selection parameters for standard
// mode. The "only wrong" restriction applies to signed-in users only.
func RandomParams(c filter.Criteria, userID string, exclude []int64) store.RandomParams {
	limit := c.Limit
	if limit <= 0 {
		limit = filter.DefaultLimit
	}
	p := store.RandomParams{
		QuestionFilter: c.Filter(),
		Limit:          limit,
		ExcludeIDs:     exclude,
	}
	if c.OnlyWrong && userID != "" {
		p.WrongFor = userID
	}
	return p
}

// distinct drops repeated ids, keeping each id's first position.
func distinct(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// inOrder arranges questions in the order of ids.
func inOrder(ids []int64, qs []qbank.Question) []qbank.Question {
	byID := make(map[int64]qbank.Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}
	out := make([]qbank.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out
}

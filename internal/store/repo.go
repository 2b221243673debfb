package store

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/simulado/internal/qbank"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique key already exists.
	ErrDuplicate = errors.New("already exists")
)

// FacetColumn names a filterable question column.
type FacetColumn string

const (
	FacetSubject FacetColumn = colSubject
	FacetSource  FacetColumn = colSource
	FacetExam    FacetColumn = colExam
)

// FacetScope narrows the questions considered when listing facet values.
type FacetScope struct {
	// Subjects limits the scan to these subjects when non-empty.
	Subjects []string
	// IDs limits the scan to these question ids when RestrictIDs is set.
	// An empty list with RestrictIDs matches nothing.
	IDs         []int64
	RestrictIDs bool
}

// QuestionFilter holds the facet filters shared by count and random
// selection. Empty fields do not filter.
type QuestionFilter struct {
	Subjects   []string
	Sources    []string
	Exam       string
	SearchText string
}

// CountParams is the parameter tuple of the match count aggregation.
type CountParams struct {
	QuestionFilter
	// UserID enables the answer-history filters. Empty means anonymous.
	UserID          string
	OnlyWrong       bool
	OnlyNotAnswered bool
}

// RandomParams is the parameter tuple of the randomized selection.
type RandomParams struct {
	QuestionFilter
	Limit int
	// ExcludeIDs is nil unless answered questions are to be skipped.
	ExcludeIDs []int64
	// WrongFor restricts the pool to questions this user answered
	// incorrectly at least once.
	WrongFor string
}

// QuestionRepo reads and writes the question bank.
type QuestionRepo interface {
	// DistinctFacetValues returns the distinct non-empty values of col
	// among questions in scope, in no particular order.
	DistinctFacetValues(ctx context.Context, col FacetColumn, scope FacetScope) ([]string, error)

	// ByIDs returns the questions with the given ids in no particular
	// order. Unknown ids are skipped.
	ByIDs(ctx context.Context, ids []int64) ([]qbank.Question, error)

	// Random returns up to p.Limit matching questions in random order.
	Random(ctx context.Context, p RandomParams) ([]qbank.Question, error)

	// Count returns the number of questions matching p.
	Count(ctx context.Context, p CountParams) (int, error)

	// Save inserts questions, replacing any with the same id.
	Save(ctx context.Context, questions []qbank.Question) (int, error)

	// All returns every question ordered by id.
	All(ctx context.Context) ([]qbank.Question, error)
}

// AnswerEvent is one recorded submission.
type AnswerEvent struct {
	ID         int64
	UserID     string
	QuestionID int64
	Correct    bool
	Subject    string
	AnsweredAt time.Time
}

// AnswerRepo provides append access to the answer log.
type AnswerRepo interface {
	// Append records an answer event.
	Append(ctx context.Context, ev AnswerEvent) error

	// CountSince counts the user's answers at or after since.
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)

	// RecentIncorrect returns the question ids of the user's newest
	// incorrect answers, newest first, duplicates kept.
	RecentIncorrect(ctx context.Context, userID string, limit int) ([]int64, error)

	// AnsweredIDs returns up to limit distinct question ids the user has
	// answered, most recently answered first.
	AnsweredIDs(ctx context.Context, userID string, limit int) ([]int64, error)

	// ListByUser returns all of the user's answers, oldest first.
	ListByUser(ctx context.Context, userID string) ([]AnswerEvent, error)
}

// BookmarkRepo manages the user/question bookmark relation.
type BookmarkRepo interface {
	Exists(ctx context.Context, userID string, questionID int64) (bool, error)

	// Create adds the bookmark. Creating an existing bookmark is a no-op.
	Create(ctx context.Context, userID string, questionID int64) error

	// Delete removes the bookmark. Deleting a missing bookmark is a no-op.
	Delete(ctx context.Context, userID string, questionID int64) error

	// List returns bookmarked question ids, most recently bookmarked first.
	List(ctx context.Context, userID string) ([]int64, error)
}

// Account is a registered user with its subscription state.
type Account struct {
	ID             string
	Email          string
	PasswordHash   string
	DisplayName    string
	Plan           string
	PlanEndsAt     time.Time
	SubscriptionID string
	CustomerID     string
	CreatedAt      time.Time
	TargetExam     string
	// IsPublic opts the account into showing its name in the ranking.
	IsPublic bool
}

// PlanUpdate carries the subscription fields set on payment approval.
type PlanUpdate struct {
	Plan           string
	EndsAt         time.Time
	SubscriptionID string
	CustomerID     string
}

// ProfileUpdate changes the profile fields that are set. Nil fields are
// left as they are.
type ProfileUpdate struct {
	DisplayName *string
	TargetExam  *string
	IsPublic    *bool
}

// IsZero reports whether the update sets nothing.
func (u ProfileUpdate) IsZero() bool {
	return u.DisplayName == nil && u.TargetExam == nil && u.IsPublic == nil
}

// AccountRepo manages accounts.
type AccountRepo interface {
	// Create stores a new account. Returns ErrDuplicate if the email is taken.
	Create(ctx context.Context, a *Account) error

	// ByEmail returns ErrNotFound when no account has the email.
	ByEmail(ctx context.Context, email string) (*Account, error)

	// ByID returns ErrNotFound when no account has the id.
	ByID(ctx context.Context, id string) (*Account, error)

	// UpdatePlan sets the subscription fields of the account.
	UpdatePlan(ctx context.Context, id string, u PlanUpdate) error

	// UpdateProfile sets the non-nil fields of u. Returns ErrNotFound when
	// no account has the id.
	UpdateProfile(ctx context.Context, id string, u ProfileUpdate) error
}

// UserScore is one account's answer totals.
type UserScore struct {
	UserID      string
	DisplayName string
	IsPublic    bool
	Total       int
	Correct     int
}

// RankingRepo aggregates the answer log across accounts.
type RankingRepo interface {
	// Scores returns the totals of every account with at least one
	// answer, in no particular order.
	Scores(ctx context.Context) ([]UserScore, error)
}

// NoticeKind classifies a notice for display.
type NoticeKind string

const (
	NoticeNews   NoticeKind = "news"
	NoticeExam   NoticeKind = "exam"
	NoticePromo  NoticeKind = "promo"
	NoticeUpdate NoticeKind = "update"
)

// Notice is a message shown on the home screen.
type Notice struct {
	ID          int64
	Kind        NoticeKind
	Title       string
	Description string
	ActionURL   string
	Priority    int
	Active      bool
	// StartsAt and EndsAt bound when the notice is shown. Zero values
	// leave that side open.
	StartsAt  time.Time
	EndsAt    time.Time
	CreatedAt time.Time
}

// NoticeRepo manages notices.
type NoticeRepo interface {
	// Create stores n and sets its ID.
	Create(ctx context.Context, n *Notice) error

	// Active returns the active notices shown at now, highest priority
	// first.
	Active(ctx context.Context, now time.Time) ([]Notice, error)

	// List returns every notice, newest first.
	List(ctx context.Context) ([]Notice, error)

	// SetActive switches a notice on or off. Returns ErrNotFound when no
	// notice has the id.
	SetActive(ctx context.Context, id int64, active bool) error
}

package selection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/simulado/internal/filter"
	"github.com/abhisek/simulado/internal/qbank"
	"github.com/abhisek/simulado/internal/store"
)

func question(id int64) qbank.Question {
	return qbank.Question{
		ID:      id,
		Subject: "Direito Penal",
		Text:    "Questao",
		Options: qbank.NewOptions("a", "b", "c", "d"),
		Correct: qbank.OptionA,
	}
}

type fakeQuestions struct {
	byIDsErr  error
	randomErr error
	missing   map[int64]bool

	byIDsCalls  [][]int64
	randomCalls []store.RandomParams
	random      []qbank.Question
}

func (f *fakeQuestions) ByIDs(_ context.Context, ids []int64) ([]qbank.Question, error) {
	f.byIDsCalls = append(f.byIDsCalls, ids)
	if f.byIDsErr != nil {
		return nil, f.byIDsErr
	}
	// Return in reverse to prove the resolver restores the order.
	var out []qbank.Question
	for i := len(ids) - 1; i >= 0; i-- {
		if !f.missing[ids[i]] {
			out = append(out, question(ids[i]))
		}
	}
	return out, nil
}

func (f *fakeQuestions) Random(_ context.Context, p store.RandomParams) ([]qbank.Question, error) {
	f.randomCalls = append(f.randomCalls, p)
	return f.random, f.randomErr
}

type fakeAnswers struct {
	incorrect []int64
	answered  []int64
	err       error

	incorrectLimit int
	answeredLimit  int
	answeredCalls  int
}

func (f *fakeAnswers) RecentIncorrect(_ context.Context, _ string, limit int) ([]int64, error) {
	f.incorrectLimit = limit
	return f.incorrect, f.err
}

func (f *fakeAnswers) AnsweredIDs(_ context.Context, _ string, limit int) ([]int64, error) {
	f.answeredCalls++
	f.answeredLimit = limit
	return f.answered, f.err
}

type fakeBookmarks struct {
	ids []int64
	err error
}

func (f *fakeBookmarks) List(context.Context, string) ([]int64, error) {
	return f.ids, f.err
}

func ids(qs []qbank.Question) []int64 {
	out := make([]int64, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func TestResolve_StandardModeParams(t *testing.T) {
	qs := &fakeQuestions{random: []qbank.Question{question(1), question(2)}}
	answers := &fakeAnswers{}
	r := NewResolver(qs, answers, &fakeBookmarks{}, nil)

	c := filter.DefaultCriteria()
	c.Disciplines = []string{"Direito Penal"}

	res, err := r.Resolve(context.Background(), "u1", c)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(res.Questions))
	assert.Equal(t, NotEmpty, res.Empty)

	require.Len(t, qs.randomCalls, 1)
	p := qs.randomCalls[0]
	assert.Equal(t, []string{"Direito Penal"}, p.Subjects)
	assert.Nil(t, p.Sources)
	assert.Empty(t, p.Exam)
	assert.Empty(t, p.SearchText)
	assert.Equal(t, 20, p.Limit)
	assert.Nil(t, p.ExcludeIDs)
	assert.Empty(t, p.WrongFor)
	assert.Zero(t, answers.answeredCalls)
}

func TestResolve_OnlyNotAnsweredExcludesHistory(t *testing.T) {
	qs := &fakeQuestions{random: []qbank.Question{question(9)}}
	answers := &fakeAnswers{answered: []int64{1, 2, 3}}
	r := NewResolver(qs, answers, &fakeBookmarks{}, nil)

	c := filter.DefaultCriteria()
	c.OnlyNotAnswered = true
	_, err := r.Resolve(context.Background(), "u1", c)
	require.NoError(t, err)

	assert.Equal(t, ExcludeCap, answers.answeredLimit)
	assert.Equal(t, []int64{1, 2, 3}, qs.randomCalls[0].ExcludeIDs)

	// Anonymous users have no history to exclude.
	_, err = r.Resolve(context.Background(), "", c)
	require.NoError(t, err)
	assert.Equal(t, 1, answers.answeredCalls)
	assert.Nil(t, qs.randomCalls[1].ExcludeIDs)
}

func TestResolve_OnlyWrongRestrictsPool(t *testing.T) {
	qs := &fakeQuestions{}
	r := NewResolver(qs, &fakeAnswers{}, &fakeBookmarks{}, nil)

	c := filter.DefaultCriteria()
	c.OnlyWrong = true
	res, err := r.Resolve(context.Background(), "u1", c)
	require.NoError(t, err)
	assert.Equal(t, "u1", qs.randomCalls[0].WrongFor)
	assert.Equal(t, NoMatches, res.Empty)
}

func TestResolve_WrongReviewCollapsesDuplicates(t *testing.T) {
	// Newest first: events for [5,5,7,9,7] inserted oldest to newest.
	answers := &fakeAnswers{incorrect: []int64{7, 9, 7, 5, 5}}
	qs := &fakeQuestions{}
	r := NewResolver(qs, answers, &fakeBookmarks{}, nil)

	c := filter.DefaultCriteria()
	c.ReviewMode = filter.ReviewWrong
	c.Limit = 10
	c.Disciplines = []string{"ignored"}

	res, err := r.Resolve(context.Background(), "u1", c)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 9, 5}, ids(res.Questions))
	assert.Equal(t, filter.ReviewWrong, res.Mode)
	assert.Equal(t, WrongReviewCap, answers.incorrectLimit)
	assert.Equal(t, [][]int64{{7, 9, 5}}, qs.byIDsCalls)
	assert.Empty(t, qs.randomCalls)
}

func TestResolve_WrongReviewEmpty(t *testing.T) {
	qs := &fakeQuestions{}
	r := NewResolver(qs, &fakeAnswers{}, &fakeBookmarks{}, nil)

	c := filter.DefaultCriteria()
	c.ReviewMode = filter.ReviewWrong
	res, err := r.Resolve(context.Background(), "u1", c)
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())
	assert.Equal(t, NoWrongAnswers, res.Empty)
	assert.NotEmpty(t, res.Empty.Message())
	assert.Empty(t, qs.byIDsCalls)
}

func TestResolve_BookmarksInBookmarkOrder(t *testing.T) {
	qs := &fakeQuestions{missing: map[int64]bool{8: true}}
	r := NewResolver(qs, &fakeAnswers{}, &fakeBookmarks{ids: []int64{3, 8, 1, 2}}, nil)

	c := filter.DefaultCriteria()
	c.ReviewMode = filter.ReviewBookmarks
	res, err := r.Resolve(context.Background(), "u1", c)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ids(res.Questions))
}

func TestResolve_NoBookmarks(t *testing.T) {
	r := NewResolver(&fakeQuestions{}, &fakeAnswers{}, &fakeBookmarks{}, nil)

	c := filter.DefaultCriteria()
	c.ReviewMode = filter.ReviewBookmarks
	for _, user := range []string{"u1", ""} {
		res, err := r.Resolve(context.Background(), user, c)
		require.NoError(t, err)
		assert.True(t, res.IsEmpty())
		assert.Equal(t, NoBookmarks, res.Empty)
	}
}

func TestResolve_FailuresAreTotal(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		questions *fakeQuestions
		answers   *fakeAnswers
		bookmarks *fakeBookmarks
		criteria  func() filter.Criteria
	}{
		{
			name:      "hydration after id lookup",
			questions: &fakeQuestions{byIDsErr: boom},
			answers:   &fakeAnswers{incorrect: []int64{1, 2}},
			bookmarks: &fakeBookmarks{},
			criteria: func() filter.Criteria {
				c := filter.DefaultCriteria()
				c.ReviewMode = filter.ReviewWrong
				return c
			},
		},
		{
			name:      "bookmark lookup",
			questions: &fakeQuestions{},
			answers:   &fakeAnswers{},
			bookmarks: &fakeBookmarks{err: boom},
			criteria: func() filter.Criteria {
				c := filter.DefaultCriteria()
				c.ReviewMode = filter.ReviewBookmarks
				return c
			},
		},
		{
			name:      "answered ids",
			questions: &fakeQuestions{},
			answers:   &fakeAnswers{err: boom},
			bookmarks: &fakeBookmarks{},
			criteria: func() filter.Criteria {
				c := filter.DefaultCriteria()
				c.OnlyNotAnswered = true
				return c
			},
		},
		{
			name:      "random sample",
			questions: &fakeQuestions{randomErr: boom, random: []qbank.Question{question(1)}},
			answers:   &fakeAnswers{},
			bookmarks: &fakeBookmarks{},
			criteria:  filter.DefaultCriteria,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.questions, tt.answers, tt.bookmarks, nil)
			res, err := r.Resolve(context.Background(), "u1", tt.criteria())
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			assert.Nil(t, res.Questions)

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.True(t, fe.Retryable())
		})
	}
}

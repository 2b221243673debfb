package filter

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/simulado/internal/store"
)

type row struct {
	id                    int64
	subject, source, exam string
}

var testRows = []row{
	{1, "Direito Penal", "Vunesp", "PC-SP 2023"},
	{2, "Direito Penal", "FGV", "PC-RJ 2022"},
	{3, "Direito Civil", "Cespe", "TJ-DF 2021"},
	{4, "Portugues", "Vunesp", "PC-SP 2023"},
	{5, "Portugues", "", ""},
	{6, " Direito Penal ", "FGV ", "PC-RJ 2022"},
}

// fakeFacets answers DistinctFacetValues over testRows.
type fakeFacets struct {
	mu    sync.Mutex
	err   error
	calls []store.FacetColumn
}

func (f *fakeFacets) DistinctFacetValues(_ context.Context, col store.FacetColumn, scope store.FacetScope) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, col)
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, r := range testRows {
		if len(scope.Subjects) > 0 && !slices.Contains(scope.Subjects, r.subject) {
			continue
		}
		if scope.RestrictIDs && !slices.Contains(scope.IDs, r.id) {
			continue
		}
		switch col {
		case store.FacetSubject:
			out = append(out, r.subject)
		case store.FacetSource:
			out = append(out, r.source)
		case store.FacetExam:
			out = append(out, r.exam)
		}
	}
	return out, nil
}

func (f *fakeFacets) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeReview struct {
	ids map[ReviewMode][]int64
	err error
}

func (f *fakeReview) ReviewIDs(_ context.Context, _ string, mode ReviewMode) ([]int64, error) {
	return f.ids[mode], f.err
}

func TestOptionResolver_AllQuestions(t *testing.T) {
	r := NewOptionResolver(&fakeFacets{}, nil, nil)

	opts, err := r.Refresh(context.Background(), "", DefaultCriteria())
	require.NoError(t, err)
	assert.Equal(t, []string{"Direito Civil", "Direito Penal", "Portugues"}, opts.Disciplines)
	assert.Equal(t, []string{"Cespe", "FGV", "Vunesp"}, opts.Sources)
	assert.Equal(t, []string{"PC-RJ 2022", "PC-SP 2023", "TJ-DF 2021"}, opts.Exams)
}

func TestOptionResolver_SourcesScopedToDisciplines(t *testing.T) {
	facets := &fakeFacets{}
	r := NewOptionResolver(facets, nil, nil)
	ctx := context.Background()

	c := DefaultCriteria()
	_, err := r.Refresh(ctx, "", c)
	require.NoError(t, err)
	before := facets.count()

	for _, ds := range [][]string{{"Direito Civil"}, {"Portugues"}, {"Direito Civil", "Portugues"}} {
		c.Disciplines = ds
		opts, err := r.RefreshSources(ctx, "", c)
		require.NoError(t, err)

		allowed := map[string]bool{}
		for _, row := range testRows {
			if slices.Contains(ds, row.subject) {
				allowed[row.source] = true
			}
		}
		for _, s := range opts.Sources {
			assert.True(t, allowed[s], "source %q not among questions of %v", s, ds)
		}
		// Discipline and exam lists do not depend on the selection.
		assert.Len(t, opts.Disciplines, 3)
		assert.Len(t, opts.Exams, 3)
	}
	assert.Equal(t, before+3, facets.count(), "only the source list is recomputed")
}

func TestOptionResolver_BookmarkScope(t *testing.T) {
	review := &fakeReview{ids: map[ReviewMode][]int64{ReviewBookmarks: {3, 4}}}
	r := NewOptionResolver(&fakeFacets{}, review, nil)

	c := DefaultCriteria()
	c.ReviewMode = ReviewBookmarks
	opts, err := r.Refresh(context.Background(), "u1", c)
	require.NoError(t, err)
	assert.Equal(t, []string{"Direito Civil", "Portugues"}, opts.Disciplines)
	assert.Equal(t, []string{"Cespe", "Vunesp"}, opts.Sources)
	assert.Equal(t, []string{"PC-SP 2023", "TJ-DF 2021"}, opts.Exams)
}

func TestOptionResolver_EmptyBookmarksForceEmptyOptions(t *testing.T) {
	facets := &fakeFacets{}
	r := NewOptionResolver(facets, &fakeReview{}, nil)
	ctx := context.Background()

	c := DefaultCriteria()
	c.ReviewMode = ReviewBookmarks
	opts, err := r.Refresh(ctx, "u1", c)
	require.NoError(t, err)
	assert.Empty(t, opts.Disciplines)
	assert.Empty(t, opts.Sources)
	assert.Empty(t, opts.Exams)
	assert.Zero(t, facets.count())

	// Anonymous users have no bookmarks either.
	opts, err = r.Refresh(ctx, "", c)
	require.NoError(t, err)
	assert.Empty(t, opts.Disciplines)
}

func TestOptionResolver_KeepsLastGoodOnError(t *testing.T) {
	facets := &fakeFacets{}
	r := NewOptionResolver(facets, nil, nil)
	ctx := context.Background()

	good, err := r.Refresh(ctx, "", DefaultCriteria())
	require.NoError(t, err)

	facets.err = errors.New("network down")
	got, err := r.Refresh(ctx, "", DefaultCriteria())
	require.Error(t, err)
	assert.Equal(t, good, got)
	assert.Equal(t, good, r.Options())

	c := DefaultCriteria()
	c.Disciplines = []string{"Portugues"}
	_, err = r.RefreshSources(ctx, "", c)
	require.Error(t, err)
	assert.Equal(t, good.Sources, r.Options().Sources)
}

func TestOptionResolver_ReviewScopeError(t *testing.T) {
	r := NewOptionResolver(&fakeFacets{}, &fakeReview{err: errors.New("boom")}, nil)
	c := DefaultCriteria()
	c.ReviewMode = ReviewWrong
	_, err := r.Refresh(context.Background(), "u1", c)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	got := normalize([]string{"b", " a ", "", "b", "  ", "a"})
	assert.Equal(t, []string{"a", "b"}, got)
}

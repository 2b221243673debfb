package filter

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/simulado/internal/logging"
	"github.com/abhisek/simulado/internal/qbank"
	"github.com/abhisek/simulado/internal/store"
)

// FacetSource lists distinct facet values from the question store.
type FacetSource interface {
	DistinctFacetValues(ctx context.Context, col store.FacetColumn, scope store.FacetScope) ([]string, error)
}

// ReviewSource returns the question ids a review mode draws from.
type ReviewSource interface {
	ReviewIDs(ctx context.Context, userID string, mode ReviewMode) ([]int64, error)
}

// Options are the selectable facet values, each sorted and unique.
type Options struct {
	Disciplines []string
	Sources     []string
	Exams       []string
}

// OptionResolver computes facet options and keeps the last good result
// when a refresh fails.
type OptionResolver struct {
	facets FacetSource
	review ReviewSource
	log    *slog.Logger

	mu     sync.Mutex
	opts   Options
	scope  store.FacetScope
	mode   ReviewMode
	loaded bool
}

// NewOptionResolver creates a resolver. review may be nil when review
// modes are not used.
func NewOptionResolver(facets FacetSource, review ReviewSource, log *slog.Logger) *OptionResolver {
	return &OptionResolver{
		facets: facets,
		review: review,
		log:    logging.OrDiscard(log).With("component", "options"),
	}
}

// Options returns the last successfully resolved options.
func (r *OptionResolver) Options() Options {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts.clone()
}

// Refresh recomputes all three option lists for the criteria's review
// mode. Disciplines and exams do not depend on the selected disciplines,
// so they are fetched concurrently.
func (r *OptionResolver) Refresh(ctx context.Context, userID string, c Criteria) (Options, error) {
	scope, err := r.reviewScope(ctx, userID, c.ReviewMode)
	if err != nil {
		return r.fail("scope", err)
	}

	var next Options
	if !forcedEmpty(scope) {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			vals, err := r.facets.DistinctFacetValues(gctx, store.FacetSubject, scope)
			next.Disciplines = normalize(vals)
			return err
		})
		g.Go(func() error {
			vals, err := r.facets.DistinctFacetValues(gctx, store.FacetExam, scope)
			next.Exams = normalize(vals)
			return err
		})
		if err := g.Wait(); err != nil {
			return r.fail("facets", err)
		}

		next.Sources, err = r.sources(ctx, scope, c.Disciplines)
		if err != nil {
			return r.fail("sources", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts = next
	r.scope = scope
	r.mode = c.ReviewMode
	r.loaded = true
	return r.opts.clone(), nil
}

// RefreshSources recomputes only the source options, scoped to the
// selected disciplines. It falls back to a full Refresh when the review
// mode changed since the last one.
func (r *OptionResolver) RefreshSources(ctx context.Context, userID string, c Criteria) (Options, error) {
	r.mu.Lock()
	loaded, mode, scope := r.loaded, r.mode, r.scope
	r.mu.Unlock()

	if !loaded || mode != c.ReviewMode {
		return r.Refresh(ctx, userID, c)
	}

	var sources []string
	if !forcedEmpty(scope) {
		var err error
		sources, err = r.sources(ctx, scope, c.Disciplines)
		if err != nil {
			return r.fail("sources", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts.Sources = sources
	return r.opts.clone(), nil
}

func (r *OptionResolver) sources(ctx context.Context, scope store.FacetScope, disciplines []string) ([]string, error) {
	scope.Subjects = disciplines
	vals, err := r.facets.DistinctFacetValues(ctx, store.FacetSource, scope)
	if err != nil {
		return nil, err
	}
	return normalize(vals), nil
}

// reviewScope restricts options to the review mode's question ids. An
// anonymous user has no review ids, so the scope is forced empty.
func (r *OptionResolver) reviewScope(ctx context.Context, userID string, mode ReviewMode) (store.FacetScope, error) {
	if mode == ReviewNone {
		return store.FacetScope{}, nil
	}
	scope := store.FacetScope{RestrictIDs: true}
	if userID == "" || r.review == nil {
		return scope, nil
	}
	ids, err := r.review.ReviewIDs(ctx, userID, mode)
	if err != nil {
		return store.FacetScope{}, err
	}
	scope.IDs = ids
	return scope, nil
}

func (r *OptionResolver) fail(step string, err error) (Options, error) {
	r.log.Warn("option refresh failed, keeping previous options", "step", step, "error", err)
	return r.Options(), fmt.Errorf("refresh options: %s: %w", step, err)
}

func forcedEmpty(scope store.FacetScope) bool {
	return scope.RestrictIDs && len(scope.IDs) == 0
}

// normalize trims, drops empty values, dedupes and sorts.
func normalize(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = qbank.NormalizeFacet(v); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (o Options) clone() Options {
	return Options{
		Disciplines: slices.Clone(o.Disciplines),
		Sources:     slices.Clone(o.Sources),
		Exams:       slices.Clone(o.Exams),
	}
}

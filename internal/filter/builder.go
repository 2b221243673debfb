package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/simulado/internal/qbank"
	"github.com/abhisek/simulado/internal/subscription"
)

// Change names the part of the criteria a Builder operation touched.
type Change int

const (
	ChangeDisciplines Change = iota
	ChangeSources
	ChangeExam
	ChangeSearch
	ChangeLimit
	ChangeFlags
	ChangeReviewMode
	ChangeCleared
)

// Builder is the only writer of a Criteria value. Every mutating call
// that changes something notifies the registered listeners.
type Builder struct {
	c       Criteria
	premium bool

	// nil until the first SetSourceOptions call.
	sourceOptions []string

	listeners []func(Change, Criteria)
}

// NewBuilder creates a builder holding DefaultCriteria.
func NewBuilder() *Builder {
	return &Builder{c: DefaultCriteria()}
}

// NewBuilderFrom creates a builder seeded with c, which must already be
// valid. A seed with a gated filter on is taken to be premium.
func NewBuilderFrom(c Criteria) *Builder {
	return &Builder{c: c.Clone(), premium: c.OnlyWrong || c.OnlyNotAnswered}
}

// Criteria returns a copy of the current criteria.
func (b *Builder) Criteria() Criteria {
	return b.c.Clone()
}

// OnChange registers a listener called after each effective mutation.
func (b *Builder) OnChange(fn func(Change, Criteria)) {
	b.listeners = append(b.listeners, fn)
}

// AddDiscipline selects a discipline. Selected sources stay selected.
func (b *Builder) AddDiscipline(d string) {
	d = qbank.NormalizeFacet(d)
	if d == "" || slices.Contains(b.c.Disciplines, d) {
		return
	}
	b.c.Disciplines = append(b.c.Disciplines, d)
	b.notify(ChangeDisciplines)
}

// RemoveDiscipline deselects a discipline. Selected sources stay selected.
func (b *Builder) RemoveDiscipline(d string) {
	d = qbank.NormalizeFacet(d)
	i := slices.Index(b.c.Disciplines, d)
	if i < 0 {
		return
	}
	b.c.Disciplines = slices.Delete(b.c.Disciplines, i, i+1)
	b.notify(ChangeDisciplines)
}

// AddSource selects a source. Once source options are known, only a
// source among them can be added.
func (b *Builder) AddSource(s string) error {
	s = qbank.NormalizeFacet(s)
	if s == "" || slices.Contains(b.c.Sources, s) {
		return nil
	}
	if b.sourceOptions != nil && !slices.Contains(b.sourceOptions, s) {
		return fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
	b.c.Sources = append(b.c.Sources, s)
	b.notify(ChangeSources)
	return nil
}

// RemoveSource deselects a source, including one that is no longer
// among the options.
func (b *Builder) RemoveSource(s string) {
	s = qbank.NormalizeFacet(s)
	i := slices.Index(b.c.Sources, s)
	if i < 0 {
		return
	}
	b.c.Sources = slices.Delete(b.c.Sources, i, i+1)
	b.notify(ChangeSources)
}

// SetExam selects a single exam. The empty string clears it.
func (b *Builder) SetExam(e string) {
	e = qbank.NormalizeFacet(e)
	if e == b.c.Exam {
		return
	}
	b.c.Exam = e
	b.notify(ChangeExam)
}

// SetSearchText sets the trimmed free-text search.
func (b *Builder) SetSearchText(t string) {
	t = strings.TrimSpace(t)
	if t == b.c.SearchText {
		return
	}
	b.c.SearchText = t
	b.notify(ChangeSearch)
}

// SetLimit sets the question count.
func (b *Builder) SetLimit(n int) error {
	if !ValidLimit(n) {
		return fmt.Errorf("%w: %d (want one of %v)", ErrInvalidLimit, n, AllowedLimits)
	}
	if n == b.c.Limit {
		return nil
	}
	b.c.Limit = n
	b.notify(ChangeLimit)
	return nil
}

// SetOnlyNotAnswered toggles the premium-only "not answered yet" filter.
// Turning it on without premium returns subscription.ErrUpsell and
// leaves the criteria untouched.
func (b *Builder) SetOnlyNotAnswered(v bool) error {
	return b.setGated(&b.c.OnlyNotAnswered, v, "only not answered")
}

// SetOnlyWrong toggles the premium-only "answered wrong" filter. Turning
// it on without premium returns subscription.ErrUpsell and leaves the
// criteria untouched.
func (b *Builder) SetOnlyWrong(v bool) error {
	return b.setGated(&b.c.OnlyWrong, v, "only wrong")
}

func (b *Builder) setGated(field *bool, v bool, name string) error {
	if v && !b.premium {
		return fmt.Errorf("%s: %w", name, subscription.ErrUpsell)
	}
	if *field == v {
		return nil
	}
	*field = v
	b.notify(ChangeFlags)
	return nil
}

// SetReviewMode switches between the facet filters and a review mode.
func (b *Builder) SetReviewMode(m ReviewMode) {
	if m == b.c.ReviewMode {
		return
	}
	b.c.ReviewMode = m
	b.notify(ChangeReviewMode)
}

// Clear resets every facet and flag to its default. The review mode is
// kept because it comes from the entry point, not the filter form.
func (b *Builder) Clear() {
	mode := b.c.ReviewMode
	b.c = DefaultCriteria()
	b.c.ReviewMode = mode
	b.notify(ChangeCleared)
}

// SetPremium records the user's tier. Losing premium switches the gated
// filters off.
func (b *Builder) SetPremium(premium bool) {
	b.premium = premium
	if premium || (!b.c.OnlyWrong && !b.c.OnlyNotAnswered) {
		return
	}
	b.c.OnlyWrong = false
	b.c.OnlyNotAnswered = false
	b.notify(ChangeFlags)
}

// Premium reports the tier last passed to SetPremium.
func (b *Builder) Premium() bool {
	return b.premium
}

// SetSourceOptions records the sources that may be added. Already
// selected sources are never dropped.
func (b *Builder) SetSourceOptions(opts []string) {
	b.sourceOptions = slices.Clone(opts)
	if b.sourceOptions == nil {
		b.sourceOptions = []string{}
	}
}

// StaleSources returns the selected sources missing from the current
// source options.
func (b *Builder) StaleSources() []string {
	if b.sourceOptions == nil {
		return nil
	}
	var stale []string
	for _, s := range b.c.Sources {
		if !slices.Contains(b.sourceOptions, s) {
			stale = append(stale, s)
		}
	}
	return stale
}

func (b *Builder) notify(ch Change) {
	c := b.c.Clone()
	for _, fn := range b.listeners {
		fn(ch, c)
	}
}

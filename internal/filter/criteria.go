// Package filter builds question filter criteria, resolves the facet
// options a user can pick from and keeps a debounced match count.
package filter

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/simulado/internal/store"
)

var (
	// ErrInvalidLimit is returned for a limit outside AllowedLimits.
	ErrInvalidLimit = errors.New("invalid question limit")
	// ErrUnknownSource is returned when adding a source that is not among
	// the current source options.
	ErrUnknownSource = errors.New("source not available for the selected disciplines")
)

// DefaultLimit is the question count used when none is chosen.
const DefaultLimit = 20

// AllowedLimits are the selectable question counts.
var AllowedLimits = []int{10, 20, 50, 100}

// ReviewMode selects an alternate question source that bypasses the
// facet filters.
type ReviewMode int

const (
	ReviewNone ReviewMode = iota
	ReviewBookmarks
	ReviewWrong
)

func (m ReviewMode) String() string {
	switch m {
	case ReviewBookmarks:
		return "bookmarks"
	case ReviewWrong:
		return "wrong"
	default:
		return ""
	}
}

// ParseReviewMode parses "", "bookmarks" or "wrong".
func ParseReviewMode(s string) (ReviewMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ReviewNone, nil
	case "bookmarks", "bookmark":
		return ReviewBookmarks, nil
	case "wrong", "errors":
		return ReviewWrong, nil
	default:
		return ReviewNone, fmt.Errorf("unknown review mode %q", s)
	}
}

// Criteria is the canonical filter descriptor. Disciplines and Sources
// keep insertion order for display.
type Criteria struct {
	Disciplines     []string
	Sources         []string
	Exam            string
	SearchText      string
	OnlyNotAnswered bool
	OnlyWrong       bool
	Limit           int
	ReviewMode      ReviewMode
}

// DefaultCriteria returns empty criteria with the default limit.
func DefaultCriteria() Criteria {
	return Criteria{Limit: DefaultLimit}
}

// Clone returns a deep copy.
func (c Criteria) Clone() Criteria {
	c.Disciplines = slices.Clone(c.Disciplines)
	c.Sources = slices.Clone(c.Sources)
	return c
}

// Filter converts the facet part of the criteria into a store filter.
func (c Criteria) Filter() store.QuestionFilter {
	return store.QuestionFilter{
		Subjects:   slices.Clone(c.Disciplines),
		Sources:    slices.Clone(c.Sources),
		Exam:       c.Exam,
		SearchText: c.SearchText,
	}
}

// IsReview reports whether a review mode is active.
func (c Criteria) IsReview() bool {
	return c.ReviewMode != ReviewNone
}

// ValidLimit reports whether n is one of AllowedLimits.
func ValidLimit(n int) bool {
	return slices.Contains(AllowedLimits, n)
}

package stats

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/abhisek/simulado/internal/store"
)

const (
	// HiddenName replaces every other candidate's name while the viewer
	// keeps their own profile private.
	HiddenName = "*****"
	// AnonymousName replaces the names of private candidates for a
	// public viewer.
	AnonymousName = "Anonymous"

	unnamed = "Candidate"
)

// Standing is one line of the ranking as seen by a viewer.
type Standing struct {
	Position int
	Name     string
	// Score is the rounded percentage of correct answers.
	Score    int
	Answered int
	Me       bool
	Public   bool
}

// Score returns the rounded share of correct answers.
func Score(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// Rank orders scores by accuracy, then by the number of answers, and
// masks names for the viewer me. A viewer with a private profile sees no
// other names; a public viewer sees the names of public candidates only.
func Rank(scores []store.UserScore, me string, mePublic bool) []Standing {
	sorted := slices.Clone(scores)
	slices.SortFunc(sorted, func(a, b store.UserScore) int {
		// Cross-multiplied to compare exact ratios.
		if c := cmp.Compare(b.Correct*a.Total, a.Correct*b.Total); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})

	out := make([]Standing, 0, len(sorted))
	for i, sc := range sorted {
		isMe := sc.UserID == me
		name := strings.TrimSpace(sc.DisplayName)
		if name == "" {
			name = unnamed
		}
		switch {
		case isMe:
			name += " (you)"
		case !mePublic:
			name = HiddenName
		case !sc.IsPublic:
			name = AnonymousName
		}
		out = append(out, Standing{
			Position: i + 1,
			Name:     name,
			Score:    Score(sc.Correct, sc.Total),
			Answered: sc.Total,
			Me:       isMe,
			Public:   sc.IsPublic,
		})
	}
	return out
}

// Mine returns the viewer's standing.
func Mine(ranked []Standing) (Standing, bool) {
	i := slices.IndexFunc(ranked, func(s Standing) bool { return s.Me })
	if i < 0 {
		return Standing{}, false
	}
	return ranked[i], true
}

// Percentile returns the "top X%" figure for the viewer, rounded up so
// the leader of any ranking is never in the top 0%. It is 0 when the
// viewer is not ranked.
func Percentile(ranked []Standing) int {
	mine, ok := Mine(ranked)
	if !ok {
		return 0
	}
	return int(math.Ceil(float64(mine.Position) * 100 / float64(len(ranked))))
}

// Top returns the first n standings, plus the viewer's own when it falls
// outside them.
func Top(ranked []Standing, n int) []Standing {
	if n <= 0 || len(ranked) <= n {
		return ranked
	}
	top := slices.Clone(ranked[:n])
	if mine, ok := Mine(ranked); ok && mine.Position > n {
		top = append(top, mine)
	}
	return top
}

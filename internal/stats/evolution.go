package stats

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/abhisek/simulado/internal/store"
)

// Range selects the window and bucket size of the evolution chart.
type Range int

const (
	// Week buckets the last seven days by day.
	Week Range = iota
	// Month buckets the last month by day.
	Month
	// AllTime buckets the whole history by calendar month.
	AllTime
)

// ParseRange parses "week", "month" or "all".
func ParseRange(s string) (Range, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "week", "weekly":
		return Week, nil
	case "month", "monthly":
		return Month, nil
	case "all", "all-time":
		return AllTime, nil
	default:
		return Week, fmt.Errorf("unknown range %q", s)
	}
}

func (r Range) String() string {
	switch r {
	case Month:
		return "last month"
	case AllTime:
		return "all time"
	default:
		return "last 7 days"
	}
}

// Next cycles week, month, all time.
func (r Range) Next() Range {
	return (r + 1) % (AllTime + 1)
}

// Point is the accuracy in one bucket of the evolution chart.
type Point struct {
	Label   string
	Start   time.Time
	Correct int
	Total   int
}

// Percent returns the share of correct answers in the bucket.
func (p Point) Percent() float64 {
	return Row{Total: p.Total, Correct: p.Correct}.Percent()
}

// Evolution buckets events by day or month, oldest first. Buckets without
// answers are left out. A non-empty subject keeps only that subject's
// answers; GeneralSubject matches answers without one. Bucket
// boundaries follow now's location.
func Evolution(events []store.AnswerEvent, r Range, subject string, now time.Time) []Point {
	loc := now.Location()
	today := startOfDay(now)

	var since time.Time
	switch r {
	case Week:
		since = today.AddDate(0, 0, -6)
	case Month:
		since = today.AddDate(0, -1, 0)
	}

	var points []Point
	index := map[time.Time]int{}
	for _, ev := range events {
		if subject != "" && subjectOf(ev) != subject {
			continue
		}
		at := ev.AnsweredAt.In(loc)
		if at.Before(since) || at.After(now) {
			continue
		}

		var start time.Time
		var label string
		switch r {
		case Week:
			start = startOfDay(at)
			label = start.Format("Mon")
		case Month:
			start = startOfDay(at)
			label = start.Format("02/01")
		default:
			start = time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, loc)
			label = start.Format("01/2006")
		}

		i, ok := index[start]
		if !ok {
			i = len(points)
			index[start] = i
			points = append(points, Point{Label: label, Start: start})
		}
		points[i].Total++
		if ev.Correct {
			points[i].Correct++
		}
	}

	slices.SortFunc(points, func(a, b Point) int { return a.Start.Compare(b.Start) })
	return points
}

// Subjects lists the subjects present in events, in first-seen order.
func Subjects(events []store.AnswerEvent) []string {
	seen := map[string]bool{}
	var out []string
	for _, ev := range events {
		s := subjectOf(ev)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func subjectOf(ev store.AnswerEvent) string {
	if s := strings.TrimSpace(ev.Subject); s != "" {
		return s
	}
	return GeneralSubject
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Package stats aggregates answer events into per-subject performance.
package stats

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/simulado/internal/store"
)

// GeneralSubject labels answers to questions without a subject.
const GeneralSubject = "Geral"

// Policy decides which attempts count when a question was answered more
// than once.
type Policy int

const (
	// EveryAttempt counts every answer event.
	EveryAttempt Policy = iota
	// LatestAttempt counts only each question's most recent answer.
	LatestAttempt
)

// ParsePolicy parses "every" or "latest".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "every", "all":
		return EveryAttempt, nil
	case "latest", "last":
		return LatestAttempt, nil
	default:
		return EveryAttempt, fmt.Errorf("unknown stats policy %q", s)
	}
}

// Row is the performance on one subject.
type Row struct {
	Subject string
	Total   int
	Correct int
}

// Percent returns the share of correct answers, 0 when there are none.
func (r Row) Percent() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total) * 100
}

// Report holds the overall totals and the per-subject rows, best first.
type Report struct {
	Overall  Row
	Subjects []Row
}

// Build aggregates events, which must be ordered oldest first.
func Build(events []store.AnswerEvent, policy Policy) Report {
	if policy == LatestAttempt {
		events = latestPerQuestion(events)
	}

	bySubject := map[string]*Row{}
	report := Report{Overall: Row{Subject: "Total"}}
	for _, ev := range events {
		subject := subjectOf(ev)
		row, ok := bySubject[subject]
		if !ok {
			row = &Row{Subject: subject}
			bySubject[subject] = row
		}
		row.Total++
		report.Overall.Total++
		if ev.Correct {
			row.Correct++
			report.Overall.Correct++
		}
	}

	for _, row := range bySubject {
		report.Subjects = append(report.Subjects, *row)
	}
	slices.SortFunc(report.Subjects, func(a, b Row) int {
		if c := cmp.Compare(b.Percent(), a.Percent()); c != 0 {
			return c
		}
		return cmp.Compare(a.Subject, b.Subject)
	})
	return report
}

func latestPerQuestion(events []store.AnswerEvent) []store.AnswerEvent {
	last := map[int64]int{}
	for i, ev := range events {
		last[ev.QuestionID] = i
	}
	out := make([]store.AnswerEvent, 0, len(last))
	for i, ev := range events {
		if last[ev.QuestionID] == i {
			out = append(out, ev)
		}
	}
	return out
}

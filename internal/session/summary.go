package session

import (
	"slices"
	"time"
)

// SubjectResult tracks per-subject performance within a single pass.
type SubjectResult struct {
	Subject   string
	Attempted int
	Correct   int
}

// Summary holds the data displayed on the summary screen.
type Summary struct {
	Duration       time.Duration
	TotalQuestions int
	Answered       int
	Correct        int
	Accuracy       float64
	Subjects       []SubjectResult
}

// Percent returns the accuracy as a whole percentage.
func (s Summary) Percent() int {
	return int(s.Accuracy*100 + 0.5)
}

// BuildSummary creates a Summary from the session's answers so far.
func (s *Session) BuildSummary() Summary {
	var results []SubjectResult
	for _, q := range s.questions {
		res, ok := s.bySubject[q.Subject]
		if !ok || slices.ContainsFunc(results, func(r SubjectResult) bool { return r.Subject == res.Subject }) {
			continue
		}
		results = append(results, *res)
	}

	var accuracy float64
	if s.answered > 0 {
		accuracy = float64(s.correct) / float64(s.answered)
	}

	return Summary{
		Duration:       s.now().Sub(s.started),
		TotalQuestions: len(s.questions),
		Answered:       s.answered,
		Correct:        s.correct,
		Accuracy:       accuracy,
		Subjects:       results,
	}
}

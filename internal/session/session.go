// Package session runs a pass over a resolved question set: one question
// at a time, select, submit, reveal, advance.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/simulado/internal/qbank"
	"github.com/abhisek/simulado/internal/store"
)

// Gate decides whether the user may answer. quota.Gate implements it.
type Gate interface {
	CanAnswer() bool
	Check(ctx context.Context) error
	Record()
}

// AnswerSink takes answer events for best-effort persistence.
type AnswerSink interface {
	Submit(ev store.AnswerEvent)
}

// Session is the cursor over one question set. It is driven by a single
// goroutine and holds no locks.
type Session struct {
	gate   Gate
	sink   AnswerSink
	userID string
	now    func() time.Time

	questions []qbank.Question
	index     int
	selected  qbank.OptionID
	revealed  bool
	blocked   bool
	last      *Outcome

	started   time.Time
	answered  int
	correct   int
	bySubject map[string]*SubjectResult
}

// New creates an empty session. sink may be nil for anonymous use.
func New(gate Gate, sink AnswerSink) *Session {
	s := &Session{gate: gate, sink: sink, now: time.Now}
	s.reset()
	return s
}

// Load starts a new pass over questions for userID. The cursor always
// returns to the first question with nothing selected, and the gate is
// consulted before anything is shown.
func (s *Session) Load(userID string, questions []qbank.Question) {
	s.userID = userID
	s.questions = questions
	s.reset()
	s.blocked = len(questions) > 0 && !s.gate.CanAnswer()
}

func (s *Session) reset() {
	s.index = 0
	s.selected = ""
	s.revealed = false
	s.blocked = false
	s.last = nil
	s.started = s.now()
	s.answered = 0
	s.correct = 0
	s.bySubject = map[string]*SubjectResult{}
}

// Phase returns the state of the current question.
func (s *Session) Phase() Phase {
	switch {
	case s.blocked:
		return PhaseBlocked
	case s.revealed:
		return PhaseRevealed
	case s.selected != "":
		return PhaseSelected
	default:
		return PhaseUnanswered
	}
}

// Current returns the current question.
func (s *Session) Current() (qbank.Question, bool) {
	if s.index >= len(s.questions) {
		return qbank.Question{}, false
	}
	return s.questions[s.index], true
}

// Index returns the zero-based position of the current question.
func (s *Session) Index() int { return s.index }

// Len returns the number of questions in the pass.
func (s *Session) Len() int { return len(s.questions) }

// Selected returns the selected option, "" when none.
func (s *Session) Selected() qbank.OptionID { return s.selected }

// Revealed reports whether the current answer was submitted.
func (s *Session) Revealed() bool { return s.revealed }

// Blocked reports whether the daily limit stopped the session.
func (s *Session) Blocked() bool { return s.blocked }

// LastOutcome returns the outcome of the current question once revealed.
func (s *Session) LastOutcome() (Outcome, bool) {
	if !s.revealed || s.last == nil {
		return Outcome{}, false
	}
	return *s.last, true
}

// IsLast reports whether the current question is the last one.
func (s *Session) IsLast() bool {
	return s.index >= len(s.questions)-1
}

// Done reports whether the last question has been revealed.
func (s *Session) Done() bool {
	return len(s.questions) > 0 && s.IsLast() && s.revealed
}

// Select picks an option. Picking again before submitting replaces the
// previous choice.
func (s *Session) Select(id qbank.OptionID) error {
	if _, ok := s.Current(); !ok {
		return ErrNoQuestion
	}
	if s.blocked {
		return ErrBlocked
	}
	if s.revealed {
		return ErrAlreadyRevealed
	}
	if !id.Valid() {
		return fmt.Errorf("%w: %q", qbank.ErrInvalidOption, id)
	}
	s.selected = id
	return nil
}

// Submit reveals the current answer. The gate is checked first; when it
// refuses, the session becomes blocked and nothing is recorded. Otherwise
// correctness is computed locally, the event goes to the sink without
// waiting for it to be stored, and the gate counts the answer.
func (s *Session) Submit(ctx context.Context) (Outcome, error) {
	q, ok := s.Current()
	if !ok {
		return Outcome{}, ErrNoQuestion
	}
	if s.blocked {
		return Outcome{}, ErrBlocked
	}
	if s.revealed {
		return Outcome{}, ErrAlreadyRevealed
	}
	if s.selected == "" {
		return Outcome{}, ErrNothingSelected
	}

	if err := s.gate.Check(ctx); err != nil {
		s.blocked = true
		return Outcome{}, err
	}

	out := Outcome{Question: q, Selected: s.selected, Correct: q.IsCorrect(s.selected)}
	s.revealed = true
	s.last = &out
	s.tally(q.Subject, out.Correct)

	if s.userID != "" && s.sink != nil {
		s.sink.Submit(store.AnswerEvent{
			UserID:     s.userID,
			QuestionID: q.ID,
			Correct:    out.Correct,
			Subject:    q.Subject,
			AnsweredAt: s.now(),
		})
	}
	s.gate.Record()
	return out, nil
}

// Advance moves to the next question once the current one is revealed.
// It returns false, changing nothing, on the last question or before
// the reveal.
func (s *Session) Advance() bool {
	if !s.revealed || s.IsLast() {
		return false
	}
	s.index++
	s.selected = ""
	s.revealed = false
	s.last = nil
	return true
}

// Unblock re-checks the gate, for example after the user subscribed.
func (s *Session) Unblock(ctx context.Context) bool {
	if !s.blocked {
		return true
	}
	if err := s.gate.Check(ctx); err != nil {
		return false
	}
	s.blocked = false
	return true
}

func (s *Session) tally(subject string, correct bool) {
	s.answered++
	if correct {
		s.correct++
	}
	res, ok := s.bySubject[subject]
	if !ok {
		res = &SubjectResult{Subject: subject}
		s.bySubject[subject] = res
	}
	res.Attempted++
	if correct {
		res.Correct++
	}
}

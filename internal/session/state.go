package session

import (
	"errors"

	"github.com/abhisek/simulado/internal/qbank"
)

var (
	// ErrNoQuestion is returned when the session has no current question.
	ErrNoQuestion = errors.New("no current question")
	// ErrNothingSelected is returned by Submit before an option is selected.
	ErrNothingSelected = errors.New("no option selected")
	// ErrAlreadyRevealed is returned when the current answer was already submitted.
	ErrAlreadyRevealed = errors.New("answer already revealed")
	// ErrBlocked is returned while the daily limit blocks the session.
	ErrBlocked = errors.New("session blocked by daily limit")
)

// Phase is the state of the current question.
type Phase int

const (
	PhaseUnanswered Phase = iota // No option picked yet
	PhaseSelected                // An option is picked, not submitted
	PhaseRevealed                // Submitted; feedback is shown
	PhaseBlocked                 // The daily limit stops further answers
)

func (p Phase) String() string {
	switch p {
	case PhaseUnanswered:
		return "unanswered"
	case PhaseSelected:
		return "selected"
	case PhaseRevealed:
		return "revealed"
	case PhaseBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Outcome is the locally computed result of a submit.
type Outcome struct {
	Question qbank.Question
	Selected qbank.OptionID
	Correct  bool
}

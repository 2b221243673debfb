package qbank

import (
	"errors"
	"fmt"
	"strings"
)

// OptionID identifies one of the four answer options.
type OptionID string

const (
	OptionA OptionID = "A"
	OptionB OptionID = "B"
	OptionC OptionID = "C"
	OptionD OptionID = "D"
)

// OptionIDs lists the option ids in display order.
var OptionIDs = [4]OptionID{OptionA, OptionB, OptionC, OptionD}

// ErrInvalidOption is returned for anything outside A-D.
var ErrInvalidOption = errors.New("invalid option id")

// ParseOptionID accepts "a".."d" in any case, surrounding blanks ignored.
func ParseOptionID(s string) (OptionID, error) {
	id := OptionID(strings.ToUpper(strings.TrimSpace(s)))
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidOption, s)
	}
	return id, nil
}

// Valid reports whether id is one of A-D.
func (id OptionID) Valid() bool {
	switch id {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Index returns the zero-based position of id, or -1.
func (id OptionID) Index() int {
	for i, o := range OptionIDs {
		if o == id {
			return i
		}
	}
	return -1
}

// Option is one labelled answer choice.
type Option struct {
	ID   OptionID
	Text string
}

// Question is a read-only question record. Questions are created by the
// question bank import and never mutated by the study flow.
type Question struct {
	ID      int64
	Exam    string
	Subject string
	// Label is the question number as printed in its exam, e.g. "12".
	Label   string
	Text    string
	Options [4]Option
	Correct OptionID
	Source  string
}

// ErrInvalidQuestion wraps every validation failure.
var ErrInvalidQuestion = errors.New("invalid question")

// Validate checks the structural invariants of a question record.
func (q Question) Validate() error {
	if q.ID <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidQuestion, q.ID)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: question %d has no text", ErrInvalidQuestion, q.ID)
	}
	for i, o := range q.Options {
		if o.ID != OptionIDs[i] {
			return fmt.Errorf("%w: question %d option %d has id %q, want %q",
				ErrInvalidQuestion, q.ID, i, o.ID, OptionIDs[i])
		}
		if strings.TrimSpace(o.Text) == "" {
			return fmt.Errorf("%w: question %d option %s is empty", ErrInvalidQuestion, q.ID, o.ID)
		}
	}
	if !q.Correct.Valid() {
		return fmt.Errorf("%w: question %d has correct answer %q", ErrInvalidQuestion, q.ID, q.Correct)
	}
	return nil
}

// IsCorrect reports whether id is the question's correct option.
func (q Question) IsCorrect(id OptionID) bool {
	return id != "" && id == q.Correct
}

// Option returns the option with the given id.
func (q Question) Option(id OptionID) (Option, bool) {
	i := id.Index()
	if i < 0 {
		return Option{}, false
	}
	return q.Options[i], true
}

// Title renders the header line shown above the question text.
func (q Question) Title() string {
	parts := make([]string, 0, 3)
	if q.Exam != "" {
		parts = append(parts, q.Exam)
	}
	if q.Label != "" {
		parts = append(parts, "Questão "+q.Label)
	}
	if q.Subject != "" {
		parts = append(parts, q.Subject)
	}
	return strings.Join(parts, " · ")
}

// NewOptions builds the option array from the four texts in A-D order.
func NewOptions(a, b, c, d string) [4]Option {
	return [4]Option{
		{ID: OptionA, Text: a},
		{ID: OptionB, Text: b},
		{ID: OptionC, Text: c},
		{ID: OptionD, Text: d},
	}
}

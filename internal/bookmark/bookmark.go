// Package bookmark toggles question bookmarks with an optimistic local
// flag that is reverted when the durable write fails.
package bookmark

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abhisek/simulado/internal/logging"
)

// Store is the durable bookmark relation.
type Store interface {
	Exists(ctx context.Context, userID string, questionID int64) (bool, error)
	Create(ctx context.Context, userID string, questionID int64) error
	Delete(ctx context.Context, userID string, questionID int64) error
}

// ToggleError reports a toggle whose durable write failed. The local
// flag has already been restored when it is returned.
type ToggleError struct {
	QuestionID int64
	Err        error
}

func (e *ToggleError) Error() string {
	return fmt.Sprintf("toggle bookmark for question %d: %v", e.QuestionID, e.Err)
}

func (e *ToggleError) Unwrap() error { return e.Err }

// transition is one tentative flag change. revert is its exact inverse.
type transition struct {
	questionID int64
	from, to   bool
}

func (t transition) apply(m *Manager)  { m.marks[t.questionID] = t.to }
func (t transition) revert(m *Manager) { m.marks[t.questionID] = t.from }

// Manager owns the bookmark flags of one user.
type Manager struct {
	store Store
	log   *slog.Logger

	mu     sync.Mutex
	userID string
	marks  map[int64]bool
}

// NewManager creates a manager.
func NewManager(store Store, log *slog.Logger) *Manager {
	return &Manager{
		store: store,
		log:   logging.OrDiscard(log).With("component", "bookmark"),
		marks: map[int64]bool{},
	}
}

// Load reads the bookmark flags of the given questions for userID.
// Anonymous users have no bookmarks.
func (m *Manager) Load(ctx context.Context, userID string, questionIDs []int64) error {
	marks := make(map[int64]bool, len(questionIDs))
	if userID != "" {
		for _, id := range questionIDs {
			ok, err := m.store.Exists(ctx, userID, id)
			if err != nil {
				return fmt.Errorf("load bookmarks: %w", err)
			}
			marks[id] = ok
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID = userID
	m.marks = marks
	return nil
}

// Bookmarked returns the local flag for a question.
func (m *Manager) Bookmarked(questionID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marks[questionID]
}

// Toggle flips the bookmark and returns the new state. On a failed write
// the flag is reverted and a *ToggleError is returned with the original
// state. A flag that was never loaded is read from the store first; if
// that read fails nothing is written. For anonymous users it does nothing and returns false.
func (m *Manager) Toggle(ctx context.Context, userID string, questionID int64) (bool, error) {
	if userID == "" {
		return false, nil
	}

	m.mu.Lock()
	if userID != m.userID {
		m.userID = userID
		m.marks = map[int64]bool{}
	}
	cur, known := m.marks[questionID]
	m.mu.Unlock()

	// A flag that was never loaded is read first, so a failed Load cannot
	// turn a delete into a duplicate create.
	if !known {
		ok, err := m.store.Exists(ctx, userID, questionID)
		if err != nil {
			m.log.Warn("bookmark read failed", "question_id", questionID, "error", err)
			return false, &ToggleError{QuestionID: questionID, Err: err}
		}
		cur = ok
	}

	m.mu.Lock()
	if userID != m.userID {
		m.userID = userID
		m.marks = map[int64]bool{}
	}
	t := transition{questionID: questionID, from: cur, to: !cur}
	t.apply(m)
	m.mu.Unlock()

	var err error
	if t.to {
		err = m.store.Create(ctx, userID, questionID)
	} else {
		err = m.store.Delete(ctx, userID, questionID)
	}
	if err == nil {
		return t.to, nil
	}

	m.mu.Lock()
	if m.userID == userID {
		t.revert(m)
	}
	m.mu.Unlock()

	m.log.Warn("bookmark write failed, reverted", "question_id", questionID, "error", err)
	return t.from, &ToggleError{QuestionID: questionID, Err: err}
}

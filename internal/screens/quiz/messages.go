package quiz

import "github.com/abhisek/simulado/internal/selection"

// loadedMsg carries the resolved question set.
type loadedMsg struct {
	Result selection.Result
	Err    error
}

// bookmarkMsg reports the result of a bookmark toggle.
type bookmarkMsg struct {
	QuestionID int64
	On         bool
	Err        error
}

// unblockedMsg reports whether the gate opened again after the upsell.
type unblockedMsg struct {
	OK bool
}

// clearNoticeMsg hides a transient notice unless a newer one replaced it.
type clearNoticeMsg struct {
	Seq int
}

// Package quiz is the study screen: it resolves a question set and runs a
// session over it.
package quiz

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/simulado/internal/filter"
	"github.com/abhisek/simulado/internal/logging"
	"github.com/abhisek/simulado/internal/qbank"
	"github.com/abhisek/simulado/internal/router"
	"github.com/abhisek/simulado/internal/screen"
	"github.com/abhisek/simulado/internal/screens/summary"
	"github.com/abhisek/simulado/internal/selection"
	"github.com/abhisek/simulado/internal/session"
	"github.com/abhisek/simulado/internal/subscription"
	"github.com/abhisek/simulado/internal/ui/components"
	"github.com/abhisek/simulado/internal/ui/layout"
)

const (
	ioTimeout      = 10 * time.Second
	noticeDuration = 3 * time.Second
)

// Resolver produces the question set. selection.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, userID string, c filter.Criteria) (selection.Result, error)
}

// Gate is the daily limit. quota.Gate implements it.
type Gate interface {
	session.Gate
	Load(ctx context.Context, userID string) error
	Limit() int
}

// Bookmarks keeps bookmark flags. bookmark.Manager implements it.
type Bookmarks interface {
	Load(ctx context.Context, userID string, questionIDs []int64) error
	Bookmarked(questionID int64) bool
	Toggle(ctx context.Context, userID string, questionID int64) (bool, error)
}

// Deps are the collaborators of the quiz screen.
type Deps struct {
	Resolver  Resolver
	Gate      Gate
	Bookmarks Bookmarks
	Sink      session.AnswerSink
	UserID    func() string
	// Upsell builds the screen pushed when the daily limit is reached.
	Upsell func() screen.Screen
	Log    *slog.Logger
}

type state int

const (
	stateLoading state = iota
	stateFailed
	stateEmpty
	stateActive
)

// Screen is the quiz screen.
type Screen struct {
	deps     Deps
	criteria filter.Criteria
	log      *slog.Logger

	state     state
	err       error
	retryable bool
	result    selection.Result
	sess      *session.Session
	cursor    int

	notice    string
	noticeSeq int
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.Resumer = (*Screen)(nil)

// New creates a quiz over the questions matching c.
func New(deps Deps, c filter.Criteria) *Screen {
	if deps.UserID == nil {
		deps.UserID = func() string { return "" }
	}
	return &Screen{
		deps:     deps,
		criteria: c.Clone(),
		log:      logging.OrDiscard(deps.Log).With("component", "quiz"),
		sess:     session.New(deps.Gate, deps.Sink),
	}
}

func (s *Screen) Init() tea.Cmd {
	s.state = stateLoading
	return s.load()
}

func (s *Screen) Title() string {
	switch s.criteria.ReviewMode {
	case filter.ReviewWrong:
		return "Review: wrong answers"
	case filter.ReviewBookmarks:
		return "Review: bookmarks"
	default:
		return "Study"
	}
}

// Resume runs when the upsell screen is closed. A user who just
// subscribed continues where they stopped.
func (s *Screen) Resume() tea.Cmd {
	if s.state != stateActive || !s.sess.Blocked() {
		return nil
	}
	sess := s.sess
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		return unblockedMsg{OK: sess.Unblock(ctx)}
	}
}

func (s *Screen) KeyHints() []layout.KeyHint {
	switch s.state {
	case stateFailed:
		if s.retryable {
			return []layout.KeyHint{{Key: "r", Description: "Retry"}, {Key: "Esc", Description: "Back"}}
		}
		return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
	case stateActive:
	default:
		return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
	}

	switch s.sess.Phase() {
	case session.PhaseBlocked:
		return []layout.KeyHint{{Key: "s", Description: "See plans"}, {Key: "Esc", Description: "Back"}}
	case session.PhaseRevealed:
		next := "Next"
		if s.sess.IsLast() {
			next = "Finish"
		}
		return []layout.KeyHint{
			{Key: "n/→", Description: next},
			{Key: "b", Description: "Bookmark"},
			{Key: "Esc", Description: "Back"},
		}
	default:
		return []layout.KeyHint{
			{Key: "↑↓/A-D", Description: "Choose"},
			{Key: "Enter", Description: "Submit"},
			{Key: "b", Description: "Bookmark"},
			{Key: "Esc", Description: "Back"},
		}
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		return s.handleLoaded(msg)

	case bookmarkMsg:
		return s.handleBookmark(msg)

	case unblockedMsg:
		if !msg.OK {
			return s, nil
		}
		return s, s.flash("Welcome to Premium. Keep going!")

	case clearNoticeMsg:
		if msg.Seq == s.noticeSeq {
			s.notice = ""
		}
		return s, nil

	case tea.KeyPressMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *Screen) load() tea.Cmd {
	deps, c, log := s.deps, s.criteria, s.log
	userID := deps.UserID()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()

		// The gate must know the user before the first question shows.
		if err := deps.Gate.Load(ctx, userID); err != nil {
			log.Warn("quota not loaded, counting from zero", "error", err)
		}

		res, err := deps.Resolver.Resolve(ctx, userID, c)
		if err != nil {
			return loadedMsg{Err: err}
		}

		if deps.Bookmarks != nil && !res.IsEmpty() {
			ids := make([]int64, len(res.Questions))
			for i, q := range res.Questions {
				ids[i] = q.ID
			}
			if err := deps.Bookmarks.Load(ctx, userID, ids); err != nil {
				log.Warn("bookmark flags not loaded", "error", err)
			}
		}
		return loadedMsg{Result: res}
	}
}

func (s *Screen) handleLoaded(msg loadedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.state = stateFailed
		s.err = msg.Err
		var fe *selection.FetchError
		s.retryable = errors.As(msg.Err, &fe) && fe.Retryable()
		s.log.Warn("question set failed to load", "error", msg.Err, "retryable", s.retryable)
		return s, nil
	}

	s.result = msg.Result
	if msg.Result.IsEmpty() {
		s.state = stateEmpty
		return s, nil
	}

	s.state = stateActive
	s.cursor = 0
	s.sess.Load(s.deps.UserID(), msg.Result.Questions)
	return s, nil
}

func (s *Screen) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	switch s.state {
	case stateFailed:
		if s.retryable && key.Matches(msg, components.Keys.Retry) {
			s.state = stateLoading
			s.err = nil
			return s, s.load()
		}
		return s, nil
	case stateActive:
	default:
		return s, nil
	}

	switch s.sess.Phase() {
	case session.PhaseBlocked:
		if key.Matches(msg, components.Keys.Subscribe, components.Keys.Enter) {
			return s, s.pushUpsell()
		}
		return s, nil

	case session.PhaseRevealed:
		switch {
		case key.Matches(msg, components.Keys.Next):
			return s.advance()
		case key.Matches(msg, components.Keys.Bookmark):
			return s, s.toggleBookmark()
		}
		return s, nil
	}

	// Lower-case b bookmarks; option B is upper-case B, 2 or the arrows.
	if key.Matches(msg, components.Keys.Bookmark) {
		return s, s.toggleBookmark()
	}

	switch {
	case key.Matches(msg, components.Keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}
		s.choose(s.cursor)
	case key.Matches(msg, components.Keys.Down):
		if s.cursor < len(qbank.OptionIDs)-1 {
			s.cursor++
		}
		s.choose(s.cursor)
	case key.Matches(msg, components.Keys.Enter):
		return s.submit()
	default:
		if i, ok := optionKey(msg); ok {
			s.cursor = i
			s.choose(i)
		}
	}
	return s, nil
}

// optionKey maps A-D (either case except b) and 1-4 to an option index.
func optionKey(msg tea.KeyPressMsg) (int, bool) {
	switch k := msg.String(); k {
	case "1", "2", "3", "4":
		return int(k[0] - '1'), true
	case "b":
		return 0, false
	}
	for i, b := range components.Keys.Options {
		if key.Matches(msg, b) {
			return i, true
		}
	}
	return 0, false
}

func (s *Screen) choose(i int) {
	_ = s.sess.Select(qbank.OptionIDs[i])
}

func (s *Screen) submit() (screen.Screen, tea.Cmd) {
	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()

	_, err := s.sess.Submit(ctx)
	switch {
	case err == nil:
		return s, nil
	case subscription.IsUpsell(err):
		return s, s.pushUpsell()
	case errors.Is(err, session.ErrNothingSelected):
		return s, s.flash("Pick an option first.")
	default:
		s.log.Warn("submit failed", "error", err)
		return s, nil
	}
}

func (s *Screen) advance() (screen.Screen, tea.Cmd) {
	if s.sess.IsLast() {
		sum := s.sess.BuildSummary()
		return s, func() tea.Msg {
			return router.ReplaceScreenMsg{Screen: summary.New(sum)}
		}
	}
	if s.sess.Advance() {
		s.cursor = 0
	}
	return s, nil
}

func (s *Screen) pushUpsell() tea.Cmd {
	if s.deps.Upsell == nil {
		return nil
	}
	up := s.deps.Upsell()
	return func() tea.Msg { return router.PushScreenMsg{Screen: up} }
}

func (s *Screen) toggleBookmark() tea.Cmd {
	q, ok := s.sess.Current()
	if !ok || s.deps.Bookmarks == nil {
		return nil
	}
	userID := s.deps.UserID()
	if userID == "" {
		return s.flash("Sign in to bookmark questions.")
	}
	bm := s.deps.Bookmarks
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		on, err := bm.Toggle(ctx, userID, q.ID)
		return bookmarkMsg{QuestionID: q.ID, On: on, Err: err}
	}
}

func (s *Screen) handleBookmark(msg bookmarkMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.log.Warn("bookmark toggle failed", "question_id", msg.QuestionID, "error", msg.Err)
		return s, s.flash("Could not update the bookmark. Try again.")
	}
	if msg.On {
		return s, s.flash("Bookmarked.")
	}
	return s, s.flash("Bookmark removed.")
}

// flash shows a notice for a few seconds.
func (s *Screen) flash(text string) tea.Cmd {
	s.noticeSeq++
	s.notice = text
	seq := s.noticeSeq
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return clearNoticeMsg{Seq: seq}
	})
}

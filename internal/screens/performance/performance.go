// Package performance shows per-subject accuracy from the answer log,
// its evolution over time and the ranking against other candidates.
package performance

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/simulado/internal/logging"
	"github.com/abhisek/simulado/internal/router"
	"github.com/abhisek/simulado/internal/screen"
	"github.com/abhisek/simulado/internal/stats"
	"github.com/abhisek/simulado/internal/store"
)

const (
	ioTimeout = 10 * time.Second
	// rankingSize is how many standings are listed before the viewer's.
	rankingSize = 10
)

// EventSource lists a user's answer events, oldest first.
type EventSource interface {
	ListByUser(ctx context.Context, userID string) ([]store.AnswerEvent, error)
}

// ScoreSource returns every candidate's answer totals.
type ScoreSource interface {
	Scores(ctx context.Context) ([]store.UserScore, error)
}

// ProfileStore reads and changes the viewer's profile.
type ProfileStore interface {
	ByID(ctx context.Context, id string) (*store.Account, error)
	UpdateProfile(ctx context.Context, id string, u store.ProfileUpdate) error
}

// PremiumFunc reports whether the user has a paid plan.
type PremiumFunc func(ctx context.Context, userID string) (bool, error)

// Deps are the collaborators of the performance screen. Only Events is
// required: without the others the ranking shows the viewer alone and
// the premium sections stay locked.
type Deps struct {
	Events   EventSource
	Scores   ScoreSource
	Profiles ProfileStore
	Premium  PremiumFunc
	// Upsell builds the screen pushed from a locked section.
	Upsell func(reason string) screen.Screen
	Policy stats.Policy
	Now    func() time.Time
	Log    *slog.Logger
}

type section int

const (
	sectionSubjects section = iota
	sectionEvolution
	sectionRanking
	sectionCount
)

func (s section) String() string {
	switch s {
	case sectionEvolution:
		return "Evolution"
	case sectionRanking:
		return "Ranking"
	default:
		return "Subjects"
	}
}

func (s section) premium() bool {
	return s != sectionSubjects
}

var keys = struct {
	Next, Prev, Policy, Range, Subject, Privacy, Unlock key.Binding
}{
	Next:    key.NewBinding(key.WithKeys("tab", "right")),
	Prev:    key.NewBinding(key.WithKeys("shift+tab", "left")),
	Policy:  key.NewBinding(key.WithKeys("l")),
	Range:   key.NewBinding(key.WithKeys("r")),
	Subject: key.NewBinding(key.WithKeys("s")),
	Privacy: key.NewBinding(key.WithKeys("p")),
	Unlock:  key.NewBinding(key.WithKeys("enter")),
}

type (
	loadedMsg struct {
		Events    []store.AnswerEvent
		Scores    []store.UserScore
		ScoresErr error
		Account   *store.Account
		Premium   bool
		Err       error
	}
	privacyMsg struct {
		Public bool
		Err    error
	}
	premiumMsg struct{ Premium bool }
)

// Screen displays the performance report.
type Screen struct {
	deps   Deps
	userID string
	log    *slog.Logger

	loaded  bool
	err     error
	section section
	policy  stats.Policy
	all     []store.AnswerEvent
	report  stats.Report

	rng      stats.Range
	subjects []string
	// subject indexes subjects; -1 is every subject.
	subject int

	premium bool
	account *store.Account
	public  bool
	scores  []store.UserScore
	ranked  []stats.Standing
	notice  string
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.Resumer = (*Screen)(nil)

// New creates the screen for userID.
func New(deps Deps, userID string) *Screen {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Screen{
		deps:    deps,
		userID:  userID,
		log:     logging.OrDiscard(deps.Log).With("component", "performance"),
		policy:  deps.Policy,
		subject: -1,
	}
}

func (s *Screen) Init() tea.Cmd {
	if s.userID == "" {
		s.loaded = true
		return nil
	}
	deps, userID := s.deps, s.userID
	return func() tea.Msg {
		return load(deps, userID)
	}
}

// load reads the answer log, the scores, the profile and the plan in
// parallel. Only a failure to read the answer log fails the screen.
func load(deps Deps, userID string) loadedMsg {
	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()

	var msg loadedMsg
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		evs, err := deps.Events.ListByUser(gctx, userID)
		msg.Events = evs
		return err
	})
	if deps.Scores != nil {
		g.Go(func() error {
			msg.Scores, msg.ScoresErr = deps.Scores.Scores(gctx)
			return nil
		})
	}
	if deps.Profiles != nil {
		g.Go(func() error {
			a, err := deps.Profiles.ByID(gctx, userID)
			if err == nil {
				msg.Account = a
			}
			return nil
		})
	}
	if deps.Premium != nil {
		g.Go(func() error {
			ok, err := deps.Premium(gctx, userID)
			msg.Premium = ok && err == nil
			return nil
		})
	}
	msg.Err = g.Wait()
	return msg
}

func (s *Screen) Resume() tea.Cmd {
	if s.deps.Premium == nil || s.userID == "" {
		return nil
	}
	premium, userID := s.deps.Premium, s.userID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		ok, err := premium(ctx, userID)
		return premiumMsg{Premium: ok && err == nil}
	}
}

func (s *Screen) Title() string {
	return "Performance"
}

// Policy returns the attempt policy in use.
func (s *Screen) Policy() stats.Policy { return s.policy }

// Report returns the current report.
func (s *Screen) Report() stats.Report { return s.report }

// Ranking returns the ranking as the viewer sees it.
func (s *Screen) Ranking() []stats.Standing { return s.ranked }

// Evolution returns the points of the evolution chart.
func (s *Screen) Evolution() []stats.Point {
	return stats.Evolution(s.all, s.rng, s.selectedSubject(), s.deps.Now())
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.loaded = true
		s.err = msg.Err
		s.all = msg.Events
		s.report = stats.Build(s.all, s.policy)
		s.subjects = stats.Subjects(s.all)
		s.premium = msg.Premium
		s.account = msg.Account
		if msg.Account != nil {
			s.public = msg.Account.IsPublic
		}
		s.scores = msg.Scores
		if msg.ScoresErr != nil {
			s.log.Warn("Failed to load ranking", "error", msg.ScoresErr)
			s.scores = nil
		}
		s.rerank()
		return s, nil

	case premiumMsg:
		s.premium = msg.Premium
		return s, nil

	case privacyMsg:
		if msg.Err != nil {
			s.log.Warn("Failed to update ranking visibility", "error", msg.Err)
			s.public = !msg.Public
			s.notice = "Could not change your ranking visibility."
		} else {
			s.notice = ""
		}
		s.rerank()
		return s, nil

	case tea.KeyPressMsg:
		if !s.loaded || s.err != nil {
			return s, nil
		}
		return s, s.handleKey(msg)
	}
	return s, nil
}

func (s *Screen) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Next):
		s.section = (s.section + 1) % sectionCount
	case key.Matches(msg, keys.Prev):
		s.section = (s.section + sectionCount - 1) % sectionCount
	case key.Matches(msg, keys.Policy) && s.section == sectionSubjects:
		if s.policy == stats.EveryAttempt {
			s.policy = stats.LatestAttempt
		} else {
			s.policy = stats.EveryAttempt
		}
		s.report = stats.Build(s.all, s.policy)
	case s.locked():
		if key.Matches(msg, keys.Unlock) && s.deps.Upsell != nil {
			up := s.deps.Upsell(s.section.String() + " is a premium feature.")
			return func() tea.Msg { return router.PushScreenMsg{Screen: up} }
		}
	case key.Matches(msg, keys.Range) && s.section == sectionEvolution:
		s.rng = s.rng.Next()
	case key.Matches(msg, keys.Subject) && s.section == sectionEvolution:
		s.subject++
		if s.subject >= len(s.subjects) {
			s.subject = -1
		}
	case key.Matches(msg, keys.Privacy) && s.section == sectionRanking:
		return s.togglePrivacy()
	}
	return nil
}

// togglePrivacy flips the visibility at once and reverts it if the
// profile cannot be saved.
func (s *Screen) togglePrivacy() tea.Cmd {
	if s.deps.Profiles == nil {
		return nil
	}
	s.public = !s.public
	s.rerank()

	profiles, userID, public := s.deps.Profiles, s.userID, s.public
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		err := profiles.UpdateProfile(ctx, userID, store.ProfileUpdate{IsPublic: &public})
		return privacyMsg{Public: public, Err: err}
	}
}

// rerank recomputes the ranking for the current visibility. Without
// scores from other candidates the viewer is ranked alone.
func (s *Screen) rerank() {
	scores := slices.Clone(s.scores)
	i := slices.IndexFunc(scores, func(sc store.UserScore) bool { return sc.UserID == s.userID })
	switch {
	case i >= 0:
		scores[i].IsPublic = s.public
	case s.report.Overall.Total > 0:
		name := ""
		if s.account != nil {
			name = s.account.DisplayName
		}
		scores = append(scores, store.UserScore{
			UserID:      s.userID,
			DisplayName: name,
			IsPublic:    s.public,
			Total:       s.report.Overall.Total,
			Correct:     s.report.Overall.Correct,
		})
	}
	s.ranked = stats.Rank(scores, s.userID, s.public)
}

func (s *Screen) locked() bool {
	return s.section.premium() && !s.premium
}

func (s *Screen) selectedSubject() string {
	if s.subject < 0 || s.subject >= len(s.subjects) {
		return ""
	}
	return s.subjects[s.subject]
}

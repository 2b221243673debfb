// Package filters is the screen where a study pass is narrowed down
// before it starts. It shows a live count of matching questions.
package filters

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/simulado/internal/filter"
	"github.com/abhisek/simulado/internal/logging"
	"github.com/abhisek/simulado/internal/router"
	"github.com/abhisek/simulado/internal/screen"
	"github.com/abhisek/simulado/internal/screens/quiz"
	"github.com/abhisek/simulado/internal/subscription"
	"github.com/abhisek/simulado/internal/ui/components"
	"github.com/abhisek/simulado/internal/ui/layout"
)

const (
	ioTimeout      = 10 * time.Second
	noticeDuration = 3 * time.Second
)

// PremiumFunc reports whether the user has a paid plan.
type PremiumFunc func(ctx context.Context, userID string) (bool, error)

// Deps are the collaborators of the filter screen.
type Deps struct {
	Facets   filter.FacetSource
	Review   filter.ReviewSource
	Counts   filter.CountService
	Debounce time.Duration
	Premium  PremiumFunc
	UserID   func() string
	// Quiz is used to start the pass on confirm.
	Quiz quiz.Deps
	// Upsell builds the screen pushed when a premium filter is chosen.
	Upsell func(reason string) screen.Screen
	Log    *slog.Logger
}

type row int

const (
	rowSearch row = iota
	rowDisciplines
	rowSources
	rowExam
	rowLimit
	rowNotAnswered
	rowWrong
	rowCount
)

var keys = struct {
	Left, Right, Toggle, Clear key.Binding
}{
	Left:   key.NewBinding(key.WithKeys("left", "h")),
	Right:  key.NewBinding(key.WithKeys("right", "l")),
	Toggle: key.NewBinding(key.WithKeys("space")),
	Clear:  key.NewBinding(key.WithKeys("x")),
}

type (
	loadedMsg struct {
		Premium bool
		Err     error
	}
	premiumMsg     struct{ Premium bool }
	countMsg       struct{ N int }
	clearNoticeMsg struct{ Seq int }
)

// Screen edits study criteria through a filter.Form.
type Screen struct {
	deps Deps
	form *filter.Form
	b    *filter.Builder
	log  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	counts chan int
	done   chan struct{}
	closed bool

	loaded  bool
	cursor  row
	pick    [rowCount]int
	search  textinput.Model
	count   int
	counted bool

	notice    string
	noticeSeq int
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.Resumer = (*Screen)(nil)
var _ screen.Closer = (*Screen)(nil)

type userFunc func() string

func (f userFunc) UserID() string { return f() }

// New creates a filter screen starting from seed.
func New(deps Deps, seed filter.Criteria) *Screen {
	if deps.UserID == nil {
		deps.UserID = func() string { return "" }
	}
	log := logging.OrDiscard(deps.Log).With("component", "filters")
	ctx, cancel := context.WithCancel(context.Background())

	b := filter.NewBuilderFrom(seed)
	counter := filter.NewMatchCounter(deps.Counts, deps.Debounce, deps.Log)
	s := &Screen{
		deps:   deps,
		b:      b,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		counts: make(chan int, 1),
		done:   make(chan struct{}),
		cursor: rowDisciplines,
	}
	s.form = filter.NewForm(ctx, b, filter.NewOptionResolver(deps.Facets, deps.Review, deps.Log), counter, userFunc(deps.UserID), deps.Log)

	// Only the latest count matters, so an unread one is replaced.
	counter.OnUpdate(func(n int) {
		select {
		case <-s.counts:
		default:
		}
		select {
		case s.counts <- n:
		default:
		}
	})

	s.search = textinput.New()
	s.search.Placeholder = "keyword, article, law..."
	s.search.CharLimit = 80
	s.search.SetValue(seed.SearchText)
	return s
}

// Criteria returns the criteria being edited.
func (s *Screen) Criteria() filter.Criteria {
	return s.b.Criteria()
}

func (s *Screen) Init() tea.Cmd {
	return s.load()
}

func (s *Screen) Title() string {
	return "Filters"
}

// Close stops the pending count and releases the waiting command.
func (s *Screen) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.form.Close()
	s.cancel()
	close(s.done)
}

// Resume re-reads the plan when the screen above is popped, so a user
// who subscribed from the upsell can use the premium filters.
func (s *Screen) Resume() tea.Cmd {
	if s.deps.Premium == nil || !s.loaded {
		return nil
	}
	premium, userID, log := s.deps.Premium, s.deps.UserID(), s.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		ok, err := premium(ctx, userID)
		if err != nil {
			log.Warn("plan lookup failed", "error", err)
		}
		return premiumMsg{Premium: ok}
	}
}

func (s *Screen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "↑↓", Description: "Field"}}
	switch s.cursor {
	case rowSearch:
		hints = append(hints, layout.KeyHint{Key: "type", Description: "Search"})
	case rowDisciplines, rowSources:
		hints = append(hints,
			layout.KeyHint{Key: "←→", Description: "Browse"},
			layout.KeyHint{Key: "Space", Description: "Select"},
		)
	case rowExam, rowLimit:
		hints = append(hints, layout.KeyHint{Key: "←→", Description: "Change"})
	default:
		hints = append(hints, layout.KeyHint{Key: "Space", Description: "Toggle"})
	}
	if s.cursor != rowSearch {
		hints = append(hints, layout.KeyHint{Key: "x", Description: "Clear"})
	}
	return append(hints,
		layout.KeyHint{Key: "Enter", Description: "Start"},
		layout.KeyHint{Key: "Esc", Description: "Back"},
	)
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.loaded = true
		s.b.SetPremium(msg.Premium)
		cmds := []tea.Cmd{s.waitCount()}
		if msg.Err != nil {
			cmds = append(cmds, s.flash("Could not load filter options."))
		}
		return s, tea.Batch(cmds...)

	case premiumMsg:
		s.b.SetPremium(msg.Premium)
		return s, nil

	case countMsg:
		s.count, s.counted = msg.N, true
		return s, s.waitCount()

	case clearNoticeMsg:
		if msg.Seq == s.noticeSeq {
			s.notice = ""
		}
		return s, nil

	case tea.KeyPressMsg:
		if !s.loaded {
			return s, nil
		}
		return s.handleKey(msg)
	}

	if s.cursor == rowSearch {
		return s.updateSearch(msg)
	}
	return s, nil
}

func (s *Screen) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	switch msg.Code {
	case tea.KeyUp:
		return s, s.move(-1)
	case tea.KeyDown:
		return s, s.move(1)
	case tea.KeyEnter:
		return s, s.start()
	}

	if s.cursor == rowSearch {
		return s.updateSearch(msg)
	}

	switch {
	case key.Matches(msg, components.Keys.Up):
		return s, s.move(-1)
	case key.Matches(msg, components.Keys.Down):
		return s, s.move(1)
	case key.Matches(msg, keys.Left):
		return s, s.step(-1)
	case key.Matches(msg, keys.Right):
		return s, s.step(1)
	case key.Matches(msg, keys.Toggle):
		return s, s.toggle()
	case key.Matches(msg, keys.Clear):
		s.b.Clear()
		s.search.SetValue("")
		s.pick = [rowCount]int{}
	}
	return s, nil
}

func (s *Screen) updateSearch(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	s.search, cmd = s.search.Update(msg)
	s.b.SetSearchText(s.search.Value())
	return s, cmd
}

func (s *Screen) move(delta int) tea.Cmd {
	next := s.cursor + row(delta)
	if next < 0 || next >= rowCount {
		return nil
	}
	s.cursor = next
	if next == rowSearch {
		return s.search.Focus()
	}
	s.search.Blur()
	return nil
}

// step moves the highlighted value of a list row, or changes the value of
// the exam and limit rows directly.
func (s *Screen) step(delta int) tea.Cmd {
	opts := s.form.Options()
	c := s.b.Criteria()
	switch s.cursor {
	case rowDisciplines:
		s.pick[rowDisciplines] = wrap(s.pick[rowDisciplines]+delta, len(opts.Disciplines))
	case rowSources:
		s.pick[rowSources] = wrap(s.pick[rowSources]+delta, len(opts.Sources))
	case rowExam:
		// Index 0 is "any exam".
		exams := append([]string{""}, opts.Exams...)
		i := wrap(slices.Index(exams, c.Exam)+delta, len(exams))
		s.b.SetExam(exams[i])
	case rowLimit:
		i := wrap(slices.Index(filter.AllowedLimits, c.Limit)+delta, len(filter.AllowedLimits))
		if err := s.b.SetLimit(filter.AllowedLimits[i]); err != nil {
			return s.flash(err.Error())
		}
	case rowNotAnswered, rowWrong:
		return s.toggle()
	}
	return nil
}

func (s *Screen) toggle() tea.Cmd {
	opts := s.form.Options()
	c := s.b.Criteria()
	switch s.cursor {
	case rowDisciplines:
		d, ok := at(opts.Disciplines, s.pick[rowDisciplines])
		if !ok {
			return nil
		}
		if slices.Contains(c.Disciplines, d) {
			s.b.RemoveDiscipline(d)
		} else {
			s.b.AddDiscipline(d)
		}
	case rowSources:
		src, ok := at(opts.Sources, s.pick[rowSources])
		if !ok {
			return nil
		}
		if slices.Contains(c.Sources, src) {
			s.b.RemoveSource(src)
			return nil
		}
		if err := s.b.AddSource(src); err != nil {
			return s.flash("That source is not in the selected disciplines.")
		}
	case rowNotAnswered:
		return s.gated(s.b.SetOnlyNotAnswered(!c.OnlyNotAnswered))
	case rowWrong:
		return s.gated(s.b.SetOnlyWrong(!c.OnlyWrong))
	}
	return nil
}

func (s *Screen) gated(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	if !errors.Is(err, subscription.ErrUpsell) || s.deps.Upsell == nil {
		return s.flash(err.Error())
	}
	up := s.deps.Upsell("Premium unlocks the not-answered and wrong-answer filters.")
	return func() tea.Msg { return router.PushScreenMsg{Screen: up} }
}

func (s *Screen) start() tea.Cmd {
	q := quiz.New(s.deps.Quiz, s.b.Criteria())
	s.log.Debug("starting study pass", "criteria", s.describe())
	return func() tea.Msg { return router.PushScreenMsg{Screen: q} }
}

func (s *Screen) load() tea.Cmd {
	form, premium, userID, log := s.form, s.deps.Premium, s.deps.UserID(), s.log
	return func() tea.Msg {
		var msg loadedMsg
		if premium != nil {
			ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
			ok, err := premium(ctx, userID)
			cancel()
			if err != nil {
				log.Warn("plan lookup failed, treating as free", "error", err)
			}
			msg.Premium = ok
		}
		if err := form.Init(); err != nil {
			log.Warn("filter options not loaded", "error", err)
			msg.Err = err
		}
		return msg
	}
}

// waitCount delivers the next count fetched by the match counter.
func (s *Screen) waitCount() tea.Cmd {
	counts, done := s.counts, s.done
	return func() tea.Msg {
		select {
		case n := <-counts:
			return countMsg{N: n}
		case <-done:
			return nil
		}
	}
}

func (s *Screen) flash(text string) tea.Cmd {
	s.noticeSeq++
	s.notice = text
	seq := s.noticeSeq
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return clearNoticeMsg{Seq: seq}
	})
}

func wrap(i, n int) int {
	if n == 0 {
		return 0
	}
	return ((i % n) + n) % n
}

func at(vals []string, i int) (string, bool) {
	if i < 0 || i >= len(vals) {
		return "", false
	}
	return vals[i], true
}

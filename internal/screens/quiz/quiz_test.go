package quiz

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/simulado/internal/filter"
	"github.com/abhisek/simulado/internal/qbank"
	"github.com/abhisek/simulado/internal/quota"
	"github.com/abhisek/simulado/internal/router"
	"github.com/abhisek/simulado/internal/screen"
	"github.com/abhisek/simulado/internal/screens/summary"
	"github.com/abhisek/simulado/internal/selection"
	"github.com/abhisek/simulado/internal/store"
)

type fakeResolver struct {
	results []selection.Result
	errs    []error
	calls   int
}

func (f *fakeResolver) Resolve(_ context.Context, _ string, _ filter.Criteria) (selection.Result, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return selection.Result{}, err
	}
	if i >= len(f.results) {
		return f.results[len(f.results)-1], nil
	}
	return f.results[i], nil
}

type fakeGate struct {
	open    bool
	checkOK bool
	records int
	loaded  string
	limit   int
}

func (g *fakeGate) Load(_ context.Context, userID string) error {
	g.loaded = userID
	return nil
}
func (g *fakeGate) CanAnswer() bool { return g.open }
func (g *fakeGate) Check(context.Context) error {
	if !g.checkOK {
		return quota.ErrLimitReached
	}
	return nil
}
func (g *fakeGate) Record() { g.records++ }
func (g *fakeGate) Limit() int {
	if g.limit == 0 {
		return quota.DailyLimit
	}
	return g.limit
}

type fakeBookmarks struct {
	marks map[int64]bool
	err   error
	calls int
}

func (b *fakeBookmarks) Load(context.Context, string, []int64) error { return nil }
func (b *fakeBookmarks) Bookmarked(id int64) bool                    { return b.marks[id] }
func (b *fakeBookmarks) Toggle(_ context.Context, _ string, id int64) (bool, error) {
	b.calls++
	if b.err != nil {
		return b.marks[id], b.err
	}
	b.marks[id] = !b.marks[id]
	return b.marks[id], nil
}

type recordingSink struct {
	events []store.AnswerEvent
}

func (r *recordingSink) Submit(ev store.AnswerEvent) { r.events = append(r.events, ev) }

func testQuestions() []qbank.Question {
	return []qbank.Question{
		{ID: 1, Subject: "Português", Text: "Qual a crase correta?", Options: qbank.NewOptions("a", "b", "c", "d"), Correct: qbank.OptionC},
		{ID: 2, Subject: "Matemática", Text: "Quanto é 2+2?", Options: qbank.NewOptions("3", "4", "5", "6"), Correct: qbank.OptionB},
	}
}

type fixture struct {
	resolver  *fakeResolver
	gate      *fakeGate
	bookmarks *fakeBookmarks
	sink      *recordingSink
	userID    string
}

func newFixture() *fixture {
	return &fixture{
		resolver:  &fakeResolver{results: []selection.Result{{Questions: testQuestions()}}},
		gate:      &fakeGate{open: true, checkOK: true},
		bookmarks: &fakeBookmarks{marks: map[int64]bool{}},
		sink:      &recordingSink{},
		userID:    "u1",
	}
}

type upsellStub struct{}

func (upsellStub) Init() tea.Cmd                           { return nil }
func (upsellStub) Update(tea.Msg) (screen.Screen, tea.Cmd) { return upsellStub{}, nil }
func (upsellStub) View(int, int) string                    { return "upsell" }
func (upsellStub) Title() string                           { return "upsell" }

func (f *fixture) screen(c filter.Criteria) *Screen {
	return New(Deps{
		Resolver:  f.resolver,
		Gate:      f.gate,
		Bookmarks: f.bookmarks,
		Sink:      f.sink,
		UserID:    func() string { return f.userID },
		Upsell:    func() screen.Screen { return upsellStub{} },
	}, c)
}

// started returns a screen with the question set loaded.
func (f *fixture) started(t *testing.T) *Screen {
	t.Helper()
	s := f.screen(filter.DefaultCriteria())
	cmd := s.Init()
	if cmd == nil {
		t.Fatal("expected a load command")
	}
	s.Update(cmd())
	return s
}

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func TestQuiz_AnswerFlow(t *testing.T) {
	f := newFixture()
	s := f.started(t)

	if s.state != stateActive {
		t.Fatalf("state = %v, want active", s.state)
	}
	if f.gate.loaded != "u1" {
		t.Errorf("gate loaded for %q, want u1", f.gate.loaded)
	}

	s.Update(keyPress('C'))
	if got := s.sess.Selected(); got != qbank.OptionC {
		t.Fatalf("Selected = %q, want C", got)
	}

	s.Update(specialKey(tea.KeyEnter))
	if !s.sess.Revealed() {
		t.Fatal("expected the answer to be revealed")
	}
	if len(f.sink.events) != 1 || !f.sink.events[0].Correct || f.sink.events[0].QuestionID != 1 {
		t.Errorf("sink events = %+v", f.sink.events)
	}
	if f.gate.records != 1 {
		t.Errorf("gate records = %d, want 1", f.gate.records)
	}
	if !strings.Contains(s.View(100, 30), "Correct!") {
		t.Error("expected correct feedback")
	}
}

func TestQuiz_ArrowsSelect(t *testing.T) {
	s := newFixture().started(t)

	s.Update(specialKey(tea.KeyDown))
	s.Update(specialKey(tea.KeyDown))
	if got := s.sess.Selected(); got != qbank.OptionC {
		t.Errorf("Selected = %q, want C", got)
	}
	s.Update(specialKey(tea.KeyUp))
	if got := s.sess.Selected(); got != qbank.OptionB {
		t.Errorf("Selected = %q, want B", got)
	}
	s.Update(keyPress('4'))
	if got := s.sess.Selected(); got != qbank.OptionD {
		t.Errorf("Selected = %q, want D", got)
	}
}

func TestQuiz_LowercaseBBookmarks(t *testing.T) {
	f := newFixture()
	s := f.started(t)

	_, cmd := s.Update(keyPress('b'))
	if s.sess.Selected() != "" {
		t.Errorf("b must not select option B, got %q", s.sess.Selected())
	}
	if cmd == nil {
		t.Fatal("expected a bookmark command")
	}
	s.Update(cmd())
	if !f.bookmarks.marks[1] {
		t.Error("expected question 1 to be bookmarked")
	}
	if s.notice != "Bookmarked." {
		t.Errorf("notice = %q", s.notice)
	}

	s.Update(keyPress('B'))
	if got := s.sess.Selected(); got != qbank.OptionB {
		t.Errorf("Selected = %q, want B", got)
	}
}

func TestQuiz_BookmarkFailureShowsNotice(t *testing.T) {
	f := newFixture()
	f.bookmarks.err = errors.New("disk full")
	s := f.started(t)

	_, cmd := s.Update(keyPress('b'))
	s.Update(cmd())

	if !strings.Contains(s.notice, "Could not update the bookmark") {
		t.Errorf("notice = %q", s.notice)
	}
	seq := s.noticeSeq

	s.Update(clearNoticeMsg{Seq: seq - 1})
	if s.notice == "" {
		t.Error("a stale clear must not hide the newer notice")
	}
	s.Update(clearNoticeMsg{Seq: seq})
	if s.notice != "" {
		t.Errorf("notice = %q, want cleared", s.notice)
	}
}

func TestQuiz_AnonymousBookmark(t *testing.T) {
	f := newFixture()
	f.userID = ""
	s := f.started(t)

	s.Update(keyPress('b'))
	if f.bookmarks.calls != 0 {
		t.Error("anonymous toggle must not reach the store")
	}
	if !strings.Contains(s.notice, "Sign in") {
		t.Errorf("notice = %q", s.notice)
	}
}

func TestQuiz_SubmitWithoutSelection(t *testing.T) {
	f := newFixture()
	s := f.started(t)

	s.Update(specialKey(tea.KeyEnter))
	if s.sess.Revealed() {
		t.Error("nothing selected, nothing should be revealed")
	}
	if len(f.sink.events) != 0 {
		t.Error("expected no events")
	}
}

func TestQuiz_AdvanceAndFinish(t *testing.T) {
	s := newFixture().started(t)

	_, cmd := s.Update(keyPress('n'))
	if cmd != nil || s.sess.Index() != 0 {
		t.Fatal("n before the reveal must do nothing")
	}

	s.Update(keyPress('A'))
	s.Update(specialKey(tea.KeyEnter))
	s.Update(specialKey(tea.KeyRight))
	if s.sess.Index() != 1 {
		t.Fatalf("Index = %d, want 1", s.sess.Index())
	}
	if s.sess.Selected() != "" {
		t.Error("the next question starts with nothing selected")
	}

	s.Update(keyPress('B'))
	s.Update(specialKey(tea.KeyEnter))
	_, cmd = s.Update(keyPress('n'))
	if cmd == nil {
		t.Fatal("expected navigation to the summary")
	}
	msg, ok := cmd().(router.ReplaceScreenMsg)
	if !ok {
		t.Fatalf("expected ReplaceScreenMsg, got %T", cmd())
	}
	if _, ok := msg.Screen.(*summary.SummaryScreen); !ok {
		t.Errorf("expected summary screen, got %T", msg.Screen)
	}
}

func TestQuiz_RetryableFailure(t *testing.T) {
	f := newFixture()
	f.resolver.errs = []error{&selection.FetchError{Op: "random questions", Err: errors.New("timeout")}}
	s := f.started(t)

	if s.state != stateFailed || !s.retryable {
		t.Fatalf("state = %v retryable = %v, want failed and retryable", s.state, s.retryable)
	}
	if !strings.Contains(s.View(100, 30), "Press r to try again") {
		t.Error("expected a retry hint")
	}

	_, cmd := s.Update(keyPress('r'))
	if cmd == nil || s.state != stateLoading {
		t.Fatal("expected r to reload")
	}
	s.Update(cmd())
	if s.state != stateActive {
		t.Errorf("state = %v, want active after retry", s.state)
	}
}

func TestQuiz_NonRetryableFailure(t *testing.T) {
	f := newFixture()
	f.resolver.errs = []error{errors.New("bad criteria")}
	s := f.started(t)

	if _, cmd := s.Update(keyPress('r')); cmd != nil {
		t.Error("r must not retry a non-retryable failure")
	}
	if s.state != stateFailed {
		t.Errorf("state = %v, want failed", s.state)
	}
}

func TestQuiz_EmptyStates(t *testing.T) {
	tests := []struct {
		name   string
		mode   filter.ReviewMode
		reason selection.EmptyReason
	}{
		{"wrong", filter.ReviewWrong, selection.NoWrongAnswers},
		{"bookmarks", filter.ReviewBookmarks, selection.NoBookmarks},
		{"filters", filter.ReviewNone, selection.NoMatches},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.resolver.results = []selection.Result{{Mode: tt.mode, Empty: tt.reason}}
			c := filter.DefaultCriteria()
			c.ReviewMode = tt.mode
			s := f.screen(c)
			s.Update(s.Init()())

			if s.state != stateEmpty {
				t.Fatalf("state = %v, want empty", s.state)
			}
			if !strings.Contains(s.View(120, 30), tt.reason.Message()) {
				t.Errorf("view missing %q", tt.reason.Message())
			}
		})
	}
}

func TestQuiz_BlockedOnLoad(t *testing.T) {
	f := newFixture()
	f.gate.open = false
	s := f.started(t)

	if !s.sess.Blocked() {
		t.Fatal("expected the session to start blocked")
	}
	if !strings.Contains(s.View(100, 30), "Daily limit reached") {
		t.Error("expected the blocked message")
	}

	s.Update(keyPress('A'))
	if s.sess.Selected() != "" {
		t.Error("a blocked session must not accept answers")
	}

	_, cmd := s.Update(keyPress('s'))
	if cmd == nil {
		t.Fatal("expected the upsell screen")
	}
	if _, ok := cmd().(router.PushScreenMsg); !ok {
		t.Error("expected PushScreenMsg")
	}
}

func TestQuiz_BlockedViewShowsGateLimit(t *testing.T) {
	f := newFixture()
	f.gate.checkOK = false
	f.gate.limit = 25
	s := f.started(t)

	s.Update(keyPress('C'))
	s.Update(specialKey(tea.KeyEnter))
	if !s.sess.Blocked() {
		t.Fatal("expected the session to be blocked")
	}
	view := s.View(100, 40)
	if !strings.Contains(view, "up to 25 questions") {
		t.Errorf("blocked view should show the configured limit:\n%s", view)
	}
	if strings.Contains(view, "up to 10 questions") {
		t.Error("blocked view should not show the default limit")
	}
}

func TestQuiz_LimitOnSubmitAndResume(t *testing.T) {
	f := newFixture()
	f.gate.checkOK = false
	s := f.started(t)

	s.Update(keyPress('C'))
	_, cmd := s.Update(specialKey(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("expected the upsell screen")
	}
	if !s.sess.Blocked() {
		t.Fatal("expected the session to be blocked")
	}
	if len(f.sink.events) != 0 || f.gate.records != 0 {
		t.Error("a refused answer must not be recorded")
	}

	// Still on the free plan after the upsell closes.
	resume := s.Resume()
	if resume == nil {
		t.Fatal("expected an unblock check")
	}
	s.Update(resume())
	if !s.sess.Blocked() {
		t.Error("expected the session to stay blocked")
	}

	// Subscribed while the upsell was open.
	f.gate.checkOK = true
	s.Update(s.Resume()())
	if s.sess.Blocked() {
		t.Error("expected the session to continue after subscribing")
	}
	if s.Resume() != nil {
		t.Error("an unblocked session has nothing to resume")
	}
}

func TestQuiz_Titles(t *testing.T) {
	f := newFixture()
	c := filter.DefaultCriteria()
	if got := f.screen(c).Title(); got != "Study" {
		t.Errorf("Title = %q", got)
	}
	c.ReviewMode = filter.ReviewWrong
	if got := f.screen(c).Title(); got != "Review: wrong answers" {
		t.Errorf("Title = %q", got)
	}
}

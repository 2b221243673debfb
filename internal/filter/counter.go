package filter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/abhisek/simulado/internal/logging"
	"github.com/abhisek/simulado/internal/store"
)

// DefaultDebounce is how long criteria must stay unchanged before a count
// is requested.
const DefaultDebounce = 500 * time.Millisecond

// CountService is the aggregation query behind the match count.
type CountService interface {
	Count(ctx context.Context, p store.CountParams) (int, error)
}

// CountParamsFor builds the aggregation parameters for the criteria.
func CountParamsFor(c Criteria, userID string) store.CountParams {
	return store.CountParams{
		QuestionFilter:  c.Filter(),
		UserID:          userID,
		OnlyWrong:       c.OnlyWrong,
		OnlyNotAnswered: c.OnlyNotAnswered,
	}
}

// MatchCounter estimates how many questions match the criteria. Each
// Schedule call supersedes the previous one: its timer is stopped and
// any request it already started is cancelled and ignored.
type MatchCounter struct {
	svc   CountService
	delay time.Duration
	log   *slog.Logger

	mu        sync.Mutex
	timer     *time.Timer
	cancel    context.CancelFunc
	gen       uint64
	count     int
	known     bool
	listeners []func(int)
}

// NewMatchCounter creates a counter. A non-positive delay uses DefaultDebounce.
func NewMatchCounter(svc CountService, delay time.Duration, log *slog.Logger) *MatchCounter {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &MatchCounter{
		svc:   svc,
		delay: delay,
		log:   logging.OrDiscard(log).With("component", "match_counter"),
	}
}

// OnUpdate registers a listener called with each successfully fetched count.
func (m *MatchCounter) OnUpdate(fn func(int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Count returns the last fetched count and whether there is one.
func (m *MatchCounter) Count() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count, m.known
}

// Schedule restarts the debounce window for the criteria. Review modes
// have no count, so scheduling one only cancels what is pending.
func (m *MatchCounter) Schedule(c Criteria, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	if c.IsReview() {
		return
	}

	gen := m.gen
	params := CountParamsFor(c, userID)
	m.timer = time.AfterFunc(m.delay, func() { m.run(gen, params) })
}

// Stop cancels any pending or in-flight estimate.
func (m *MatchCounter) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// Estimate queries the count immediately, bypassing the debounce. The
// stored count is not touched.
func (m *MatchCounter) Estimate(ctx context.Context, c Criteria, userID string) (int, error) {
	return m.svc.Count(ctx, CountParamsFor(c, userID))
}

func (m *MatchCounter) stopLocked() {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *MatchCounter) run(gen uint64, params store.CountParams) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.cancel = cancel
	m.mu.Unlock()

	n, err := m.svc.Count(ctx, params)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.cancel = nil
	if err != nil {
		m.mu.Unlock()
		m.log.Warn("match count failed, keeping previous count", "error", err)
		return
	}
	m.count = n
	m.known = true
	listeners := append([]func(int){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(n)
	}
}

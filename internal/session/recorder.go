package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/abhisek/simulado/internal/logging"
	"github.com/abhisek/simulado/internal/store"
)

// AnswerWriter appends answer events to the durable log.
type AnswerWriter interface {
	Append(ctx context.Context, ev store.AnswerEvent) error
}

// WriteFailure is a dropped or failed answer write, reported on the
// diagnostics channel.
type WriteFailure struct {
	Event store.AnswerEvent
	Err   error
}

// Recorder persists answer events in the background. Submit never
// blocks: when the queue is full the event is dropped. Failures are
// logged and offered on Diagnostics; they never reach the session.
type Recorder struct {
	writer  AnswerWriter
	timeout time.Duration
	log     *slog.Logger

	pending chan store.AnswerEvent
	diag    chan WriteFailure

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

var (
	// ErrQueueFull is reported for an event dropped on a full queue.
	ErrQueueFull = errors.New("answer queue full")
	// ErrRecorderClosed is reported for an event submitted after Close.
	ErrRecorderClosed = errors.New("answer recorder closed")
)

// NewRecorder starts the write loop with room for size queued events.
func NewRecorder(writer AnswerWriter, size int, log *slog.Logger) *Recorder {
	if size <= 0 {
		size = 64
	}
	r := &Recorder{
		writer:  writer,
		timeout: 5 * time.Second,
		log:     logging.OrDiscard(log).With("component", "answer_recorder"),
		pending: make(chan store.AnswerEvent, size),
		diag:    make(chan WriteFailure, size),
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

// Submit queues an event for writing.
func (r *Recorder) Submit(ev store.AnswerEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.fail(ev, ErrRecorderClosed)
		return
	}

	select {
	case r.pending <- ev:
	default:
		r.fail(ev, ErrQueueFull)
	}
}

// Diagnostics returns the channel of write failures. Nobody has to read
// it; failures that do not fit are only logged.
func (r *Recorder) Diagnostics() <-chan WriteFailure {
	return r.diag
}

// Close stops accepting events and waits for the queued ones to be written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.pending)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) loop() {
	defer close(r.done)
	for ev := range r.pending {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.writer.Append(ctx, ev)
		cancel()
		if err != nil {
			r.fail(ev, err)
		}
	}
}

func (r *Recorder) fail(ev store.AnswerEvent, err error) {
	r.log.Warn("answer not recorded",
		"user_id", ev.UserID,
		"question_id", ev.QuestionID,
		"error", err,
	)
	select {
	case r.diag <- WriteFailure{Event: ev, Err: err}:
	default:
	}
}

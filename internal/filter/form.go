package filter

import (
	"context"
	"log/slog"
	"sync"

	"github.com/abhisek/simulado/internal/logging"
)

// UserSource reports the signed-in user, "" when anonymous.
type UserSource interface {
	UserID() string
}

// Form connects a Builder to its OptionResolver and MatchCounter: a
// review mode change refreshes every option list, a discipline change
// refreshes the sources, and every change reschedules the count.
type Form struct {
	b       *Builder
	opts    *OptionResolver
	counter *MatchCounter
	user    UserSource
	log     *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	lastErr error
}

// NewForm wires the builder. ctx bounds the option refreshes the form
// triggers on its own.
func NewForm(ctx context.Context, b *Builder, opts *OptionResolver, counter *MatchCounter, user UserSource, log *slog.Logger) *Form {
	f := &Form{
		b:       b,
		opts:    opts,
		counter: counter,
		user:    user,
		log:     logging.OrDiscard(log).With("component", "filter_form"),
		ctx:     ctx,
	}
	b.OnChange(f.handle)
	return f
}

// Builder returns the wrapped builder.
func (f *Form) Builder() *Builder { return f.b }

// Counter returns the match counter.
func (f *Form) Counter() *MatchCounter { return f.counter }

// Init loads the option lists and schedules the first count.
func (f *Form) Init() error {
	err := f.LoadOptions()
	f.counter.Schedule(f.b.Criteria(), f.userID())
	return err
}

// LoadOptions loads the option lists without scheduling a count.
func (f *Form) LoadOptions() error {
	c := f.b.Criteria()
	return f.refresh(func(ctx context.Context, uid string) (Options, error) {
		return f.opts.Refresh(ctx, uid, c)
	})
}

// Options returns the current option lists.
func (f *Form) Options() Options {
	return f.opts.Options()
}

// Err returns the error of the most recent option refresh, nil if it
// succeeded.
func (f *Form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Close stops the match counter.
func (f *Form) Close() {
	f.counter.Stop()
}

func (f *Form) handle(ch Change, c Criteria) {
	switch ch {
	case ChangeReviewMode:
		_ = f.refresh(func(ctx context.Context, uid string) (Options, error) {
			return f.opts.Refresh(ctx, uid, c)
		})
	case ChangeDisciplines, ChangeCleared:
		_ = f.refresh(func(ctx context.Context, uid string) (Options, error) {
			return f.opts.RefreshSources(ctx, uid, c)
		})
	}
	f.counter.Schedule(c, f.userID())
}

func (f *Form) refresh(fn func(context.Context, string) (Options, error)) error {
	opts, err := fn(f.ctx, f.userID())

	f.mu.Lock()
	f.lastErr = err
	f.mu.Unlock()

	if err != nil {
		return err
	}
	f.b.SetSourceOptions(opts.Sources)
	f.log.Debug("options refreshed",
		"disciplines", len(opts.Disciplines),
		"sources", len(opts.Sources),
		"exams", len(opts.Exams),
	)
	return nil
}

func (f *Form) userID() string {
	if f.user == nil {
		return ""
	}
	return f.user.UserID()
}

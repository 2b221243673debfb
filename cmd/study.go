package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/simulado/internal/app"
	"github.com/abhisek/simulado/internal/bookmark"
	"github.com/abhisek/simulado/internal/filter"
	"github.com/abhisek/simulado/internal/quota"
	"github.com/abhisek/simulado/internal/screens/filters"
	"github.com/abhisek/simulado/internal/screens/home"
	"github.com/abhisek/simulado/internal/screens/performance"
	"github.com/abhisek/simulado/internal/screens/quiz"
	"github.com/abhisek/simulado/internal/selection"
	"github.com/abhisek/simulado/internal/session"
	"github.com/abhisek/simulado/internal/stats"
	"github.com/abhisek/simulado/internal/subscription"
	"github.com/abhisek/simulado/internal/ui/layout"
)

// studyFlags are the filter flags shared by study, options and count.
type studyFlags struct {
	disciplines     []string
	sources         []string
	exam            string
	search          string
	limit           int
	onlyWrong       bool
	onlyNotAnswered bool
	review          string
}

func defaultStudyFlags() *studyFlags {
	return &studyFlags{limit: filter.DefaultLimit}
}

func (f *studyFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringArrayVar(&f.disciplines, "discipline", nil, "Discipline to include (repeatable)")
	fl.StringArrayVar(&f.sources, "source", nil, "Source to include (repeatable)")
	fl.StringVar(&f.exam, "exam", "", "Exam to include")
	fl.StringVar(&f.search, "search", "", "Free-text search in the question")
	fl.IntVar(&f.limit, "limit", filter.DefaultLimit, fmt.Sprintf("Number of questions, one of %v", filter.AllowedLimits))
	fl.BoolVar(&f.onlyWrong, "only-wrong", false, "Only questions answered wrong before (premium)")
	fl.BoolVar(&f.onlyNotAnswered, "only-not-answered", false, "Skip questions answered before (premium)")
	fl.StringVar(&f.review, "review", "", "Review mode: wrong or bookmarks")
}

var studyOpts = defaultStudyFlags()

var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Start a study session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStudy(cmd, studyOpts)
	},
}

func init() {
	studyOpts.register(studyCmd)
}

// buildCriteria turns the flags into criteria through a filter.Builder,
// so the CLI obeys the same rules as the interactive form.
func buildCriteria(ctx context.Context, e *env, f *studyFlags, resolver *selection.Resolver) (filter.Criteria, error) {
	userID := e.session.UserID()

	b := filter.NewBuilder()
	b.SetPremium(e.premium(ctx))

	mode, err := filter.ParseReviewMode(f.review)
	if err != nil {
		return filter.Criteria{}, err
	}
	b.SetReviewMode(mode)

	for _, d := range f.disciplines {
		b.AddDiscipline(d)
	}
	if len(f.sources) > 0 {
		opts := filter.NewOptionResolver(e.store.Questions(), resolver, e.log)
		o, err := opts.RefreshSources(ctx, userID, b.Criteria())
		if err != nil {
			e.log.Warn("source options unavailable, accepting any source", "error", err)
		} else {
			b.SetSourceOptions(o.Sources)
		}
		for _, s := range f.sources {
			if err := b.AddSource(s); err != nil {
				return filter.Criteria{}, err
			}
		}
	}
	b.SetExam(f.exam)
	b.SetSearchText(f.search)
	if err := b.SetLimit(f.limit); err != nil {
		return filter.Criteria{}, err
	}

	// Anonymous users have no history to filter on, so the flags are
	// dropped for them instead of failing.
	if userID != "" {
		if err := b.SetOnlyWrong(f.onlyWrong); err != nil {
			return filter.Criteria{}, upsellHint(err)
		}
		if err := b.SetOnlyNotAnswered(f.onlyNotAnswered); err != nil {
			return filter.Criteria{}, upsellHint(err)
		}
	}
	return b.Criteria(), nil
}

func upsellHint(err error) error {
	if subscription.IsUpsell(err) {
		return fmt.Errorf("%w (see `simulado plan --checkout monthly`)", err)
	}
	return err
}

func runStudy(cmd *cobra.Command, f *studyFlags) error {
	ctx := cmd.Context()
	e, err := openEnv(cmd, true)
	if err != nil {
		return err
	}
	defer e.Close()

	answers := e.store.Answers()
	resolver := selection.NewResolver(e.store.Questions(), answers, e.store.Bookmarks(), e.log)
	criteria, err := buildCriteria(ctx, e, f, resolver)
	if err != nil {
		return err
	}

	gate := quota.NewGate(answers, e.plans, e.log)
	if err := gate.Load(ctx, e.session.UserID()); err != nil {
		e.log.Warn("daily count unavailable", "error", err)
	}
	recorder := session.NewRecorder(answers, e.cfg.Study.AnswerQueueSize, e.log)
	defer recorder.Close()

	policy := stats.EveryAttempt
	if e.cfg.Study.DistinctStats {
		policy = stats.LatestAttempt
	}

	opts := app.Options{
		Home: home.Deps{
			Quiz: quiz.Deps{
				Resolver:  resolver,
				Gate:      gate,
				Bookmarks: bookmark.NewManager(e.store.Bookmarks(), e.log),
				Sink:      recorder,
				Log:       e.log,
			},
			Filters: filters.Deps{
				Facets:   e.store.Questions(),
				Review:   resolver,
				Counts:   e.store.Questions(),
				Debounce: e.cfg.Study.CountDebounce,
				Premium:  e.plans.IsPremium,
				Log:      e.log,
			},
			Performance: performance.Deps{
				Events:   answers,
				Scores:   e.store.Rankings(),
				Profiles: e.store.Accounts(),
				Premium:  e.plans.IsPremium,
				Policy:   policy,
				Log:      e.log,
			},
			Notices:  e.store.Notices(),
			Checkout: e.checkout,
			Identity: e.session.Current,
			Criteria: criteria,
			Log:      e.log,
		},
		Status: statusFunc(e, gate),
		Log:    e.log,
	}

	e.log.Info("starting tui", "user_id", e.session.UserID(), "review", criteria.ReviewMode.String())
	if err := app.Run(ctx, opts); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// statusFunc reads the header status: who is signed in, their plan and
// today's answer count.
func statusFunc(e *env, gate *quota.Gate) app.StatusFunc {
	return func(ctx context.Context) layout.Status {
		id := e.session.Current()
		if id == nil {
			return layout.Status{}
		}
		plan, err := e.plans.Plan(ctx, id.ID)
		if err != nil {
			e.log.Debug("status plan lookup failed", "error", err)
			plan = subscription.PlanFree
		}
		st := layout.Status{
			User:      id.DisplayName(),
			PlanLabel: plan.Label(),
			Premium:   plan.IsPremium(),
			Answered:  gate.Count(),
		}
		if !st.Premium {
			st.Limit = gate.Limit()
		}
		return st
	}
}

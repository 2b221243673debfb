package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/simulado/internal/filter"
	"github.com/abhisek/simulado/internal/selection"
)

var optionsOpts = defaultStudyFlags()

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List the disciplines, sources and exams you can filter on",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		resolver := selection.NewResolver(e.store.Questions(), e.store.Answers(), e.store.Bookmarks(), e.log)
		criteria, err := buildCriteria(ctx, e, optionsOpts, resolver)
		if err != nil {
			return err
		}

		b := filter.NewBuilder()
		b.SetReviewMode(criteria.ReviewMode)
		for _, d := range criteria.Disciplines {
			b.AddDiscipline(d)
		}
		form := filter.NewForm(ctx,
			b,
			filter.NewOptionResolver(e.store.Questions(), resolver, e.log),
			filter.NewMatchCounter(e.store.Questions(), e.cfg.Study.CountDebounce, e.log),
			e.session,
			e.log,
		)
		if err := form.LoadOptions(); err != nil {
			return fmt.Errorf("load options: %w", err)
		}

		opts := form.Options()
		out := cmd.OutOrStdout()
		printList(out, "Disciplines", opts.Disciplines)
		printList(out, "Sources", opts.Sources)
		printList(out, "Exams", opts.Exams)
		return nil
	},
}

var countOpts = defaultStudyFlags()

// countCmd answers once, so it queries directly instead of going through
// the debounced counter the filter screen uses.
var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count the questions matching the filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		resolver := selection.NewResolver(e.store.Questions(), e.store.Answers(), e.store.Bookmarks(), e.log)
		criteria, err := buildCriteria(ctx, e, countOpts, resolver)
		if err != nil {
			return err
		}

		var n int
		if criteria.IsReview() {
			ids, err := resolver.ReviewIDs(ctx, e.session.UserID(), criteria.ReviewMode)
			if err != nil {
				return err
			}
			n = len(ids)
		} else {
			counter := filter.NewMatchCounter(e.store.Questions(), 0, e.log)
			n, err = counter.Estimate(ctx, criteria, e.session.UserID())
			if err != nil {
				return fmt.Errorf("count questions: %w", err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d questions match\n", n)
		return nil
	},
}

func init() {
	optionsOpts.register(optionsCmd)
	countOpts.register(countCmd)
}

func printList(w io.Writer, title string, vals []string) {
	fmt.Fprintf(w, "%s (%d)\n", title, len(vals))
	if len(vals) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	fmt.Fprintln(w, "  "+strings.Join(vals, "\n  "))
}

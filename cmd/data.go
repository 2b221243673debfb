package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/simulado/internal/bookmark"
	"github.com/abhisek/simulado/internal/filter"
	"github.com/abhisek/simulado/internal/qbank"
	"github.com/abhisek/simulado/internal/selection"
	"github.com/abhisek/simulado/internal/stats"
)

var bookmarksCmd = &cobra.Command{
	Use:   "bookmarks [question-id]",
	Short: "List bookmarked questions, or toggle the bookmark of one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := e.requireUser()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			qid, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid question id %q", args[0])
			}
			marks := bookmark.NewManager(e.store.Bookmarks(), e.log)
			if err := marks.Load(ctx, id.ID, []int64{qid}); err != nil {
				return err
			}
			on, err := marks.Toggle(ctx, id.ID, qid)
			if err != nil {
				return err
			}
			if on {
				fmt.Fprintf(out, "Bookmarked question %d.\n", qid)
			} else {
				fmt.Fprintf(out, "Removed bookmark from question %d.\n", qid)
			}
			return nil
		}

		resolver := selection.NewResolver(e.store.Questions(), e.store.Answers(), e.store.Bookmarks(), e.log)
		c := filter.DefaultCriteria()
		c.ReviewMode = filter.ReviewBookmarks
		res, err := resolver.Resolve(ctx, id.ID, c)
		if err != nil {
			return err
		}
		if res.IsEmpty() {
			fmt.Fprintln(out, res.Empty.Message())
			return nil
		}
		for _, q := range res.Questions {
			fmt.Fprintf(out, "%6d  %s\n", q.ID, q.Title())
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show performance per subject",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := e.requireUser()
		if err != nil {
			return err
		}
		policy := stats.EveryAttempt
		if latest, _ := cmd.Flags().GetBool("latest"); latest || e.cfg.Study.DistinctStats {
			policy = stats.LatestAttempt
		}

		events, err := e.store.Answers().ListByUser(cmd.Context(), id.ID)
		if err != nil {
			return fmt.Errorf("load answers: %w", err)
		}
		report := stats.Build(events, policy)

		out := cmd.OutOrStdout()
		if report.Overall.Total == 0 {
			fmt.Fprintln(out, "No answers yet.")
			return nil
		}

		if cmd.Flags().Changed("range") || cmd.Flags().Changed("subject") {
			name, _ := cmd.Flags().GetString("range")
			rng, err := stats.ParseRange(name)
			if err != nil {
				return err
			}
			if err := requirePremium(cmd.Context(), e, "evolution"); err != nil {
				return err
			}
			subject, _ := cmd.Flags().GetString("subject")
			writeEvolution(out, stats.Evolution(events, rng, subject, time.Now()), rng, subject)
			return nil
		}
		fmt.Fprintf(out, "%-30s %8s %8s %7s\n", "Subject", "Answered", "Correct", "%")
		for _, row := range append(report.Subjects, report.Overall) {
			fmt.Fprintf(out, "%-30s %8d %8d %6.1f%%\n", row.Subject, row.Total, row.Correct, row.Percent())
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import questions from a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		questions, err := qbank.ReadCSV(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		n, err := e.store.Questions().Save(cmd.Context(), questions)
		if err != nil {
			return err
		}
		e.log.Info("questions imported", "file", args[0], "count", n)
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d questions.\n", n)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file.csv]",
	Short: "Export the question bank as CSV (stdout when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		questions, err := e.store.Questions().All(cmd.Context())
		if err != nil {
			return err
		}

		if len(args) == 0 {
			return qbank.WriteCSV(cmd.OutOrStdout(), questions)
		}
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		if err := qbank.WriteCSV(f, questions); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

func init() {
	statsCmd.Flags().Bool("latest", false, "Count only the latest answer to each question")
	statsCmd.Flags().String("range", "week", "Show accuracy over time instead: week, month or all (premium)")
	statsCmd.Flags().String("subject", "", "Limit the accuracy over time to one subject")
}

func writeEvolution(out io.Writer, points []stats.Point, rng stats.Range, subject string) {
	if subject == "" {
		subject = "all subjects"
	}
	fmt.Fprintf(out, "Accuracy, %s, %s\n", rng, subject)
	if len(points) == 0 {
		fmt.Fprintln(out, "No answers in this period.")
		return
	}
	for _, p := range points {
		fmt.Fprintf(out, "%-8s %6d/%-6d %5.1f%%\n", p.Label, p.Correct, p.Total, p.Percent())
	}
}

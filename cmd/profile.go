package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abhisek/simulado/internal/stats"
	"github.com/abhisek/simulado/internal/store"
	"github.com/abhisek/simulado/internal/subscription"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or change your profile",
	Long: `Show the profile of the signed-in account.

--name and --target-exam change the display name and the exam you are
preparing for. --public shows your name in the ranking and lets you see
the names of other public candidates; --private hides it again.`,
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

		u, err := profileUpdate(cmd)
		if err != nil {
			return err
		}
		if !u.IsZero() {
			if u.IsPublic != nil {
				if err := requirePremium(ctx, e, "public ranking"); err != nil {
					return err
				}
			}
			if err := e.store.Accounts().UpdateProfile(ctx, id.ID, u); err != nil {
				return err
			}
			// The identity carries the display name.
			if err := e.session.Refresh(ctx); err != nil {
				e.log.Warn("session refresh failed", "error", err)
			}
		}

		acct, err := e.store.Accounts().ByID(ctx, id.ID)
		if err != nil {
			return err
		}
		writeProfile(cmd.OutOrStdout(), acct)
		return nil
	},
}

var rankingCmd = &cobra.Command{
	Use:   "ranking",
	Short: "Show where you stand among other candidates",
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
		if err := requirePremium(ctx, e, "ranking"); err != nil {
			return err
		}
		acct, err := e.store.Accounts().ByID(ctx, id.ID)
		if err != nil {
			return err
		}
		scores, err := e.store.Rankings().Scores(ctx)
		if err != nil {
			return fmt.Errorf("load ranking: %w", err)
		}
		top, _ := cmd.Flags().GetInt("top")
		writeRanking(cmd.OutOrStdout(), stats.Rank(scores, id.ID, acct.IsPublic), top)
		return nil
	},
}

func init() {
	registerProfileFlags(profileCmd)
	rankingCmd.Flags().Int("top", 10, "Number of candidates to list")
}

func registerProfileFlags(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.String("name", "", "Display name")
	fl.String("target-exam", "", "Exam you are preparing for")
	fl.Bool("public", false, "Show your name in the ranking (premium)")
	fl.Bool("private", false, "Hide your name from the ranking")
	cmd.MarkFlagsMutuallyExclusive("public", "private")
}

// profileUpdate collects the profile flags that were set.
func profileUpdate(cmd *cobra.Command) (store.ProfileUpdate, error) {
	fl := cmd.Flags()
	var u store.ProfileUpdate
	if fl.Changed("name") {
		name, _ := fl.GetString("name")
		u.DisplayName = &name
	}
	if fl.Changed("target-exam") {
		exam, _ := fl.GetString("target-exam")
		u.TargetExam = &exam
	}
	public, _ := fl.GetBool("public")
	private, _ := fl.GetBool("private")
	switch {
	case public && private:
		return u, errors.New("--public and --private cannot be used together")
	case fl.Changed("public"):
		u.IsPublic = &public
	case fl.Changed("private"):
		v := !private
		u.IsPublic = &v
	}
	return u, nil
}

// requirePremium fails with an upsell for free accounts.
func requirePremium(ctx context.Context, e *env, feature string) error {
	if e.premium(ctx) {
		return nil
	}
	return upsellHint(fmt.Errorf("%s: %w", feature, subscription.ErrUpsell))
}

func writeProfile(out io.Writer, a *store.Account) {
	visibility := "private"
	if a.IsPublic {
		visibility = "public"
	}
	exam := a.TargetExam
	if exam == "" {
		exam = "-"
	}
	fmt.Fprintf(out, "Name:        %s\n", a.DisplayName)
	fmt.Fprintf(out, "Email:       %s\n", a.Email)
	fmt.Fprintf(out, "Target exam: %s\n", exam)
	fmt.Fprintf(out, "Ranking:     %s\n", visibility)
}

func writeRanking(out io.Writer, ranked []stats.Standing, top int) {
	if len(ranked) == 0 {
		fmt.Fprintln(out, "Nobody has answered questions yet.")
		return
	}
	prev := 0
	for _, st := range stats.Top(ranked, top) {
		if prev > 0 && st.Position > prev+1 {
			fmt.Fprintln(out, "  ...")
		}
		fmt.Fprintf(out, "%4d  %-30s %3d%%  %6d answers\n", st.Position, st.Name, st.Score, st.Answered)
		prev = st.Position
	}
	if p := stats.Percentile(ranked); p > 0 {
		fmt.Fprintf(out, "\nYou are in the top %d%% of candidates.\n", p)
	}
}

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/simulado/internal/billing"
	"github.com/abhisek/simulado/internal/subscription"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}

		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := e.session.Register(cmd.Context(), email, password, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s. You are signed in.\n", id.DisplayName())
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}

		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := e.session.SignIn(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", id.DisplayName())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.session.SignOut(); err != nil {
			return fmt.Errorf("sign out: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		out := cmd.OutOrStdout()
		id := e.session.Current()
		if id == nil {
			fmt.Fprintln(out, "Not signed in.")
			return nil
		}
		plan, err := e.plans.Plan(cmd.Context(), id.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s <%s>\nPlan: %s\n", id.DisplayName(), id.Email, plan.Label())
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show your plan or start a checkout",
	Long: `Show the current subscription plan and when it ends.

With --checkout, create a payment for one of the paid plans and print
the URL to pay at. The plan is activated once the payment is approved.`,
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

		if name, _ := cmd.Flags().GetString("checkout"); name != "" {
			plan, err := subscription.ParsePlan(name)
			if err != nil {
				return err
			}
			url, err := e.checkout(ctx, id.ID, plan)
			if err != nil {
				return err
			}
			offer := billing.Offers[plan]
			fmt.Fprintf(out, "%s: R$ %.2f\nPay at: %s\n", offer.Title, offer.Price, url)
			return nil
		}

		st, err := e.plans.Status(ctx, id.ID)
		if err != nil {
			return err
		}
		plan := st.Effective(time.Now())
		fmt.Fprintf(out, "Plan: %s\n", plan.Label())
		if plan.IsPremium() && !st.EndsAt.IsZero() {
			fmt.Fprintf(out, "Ends: %s\n", st.EndsAt.Format("2006-01-02"))
		}
		if !plan.IsPremium() {
			fmt.Fprintln(out, "\nPaid plans:")
			for _, p := range subscription.PaidPlans {
				offer := billing.Offers[p]
				fmt.Fprintf(out, "  %-10s R$ %6.2f  %s\n", p, offer.Price, offer.Title)
			}
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().String("email", "", "Account email (required)")
		c.Flags().String("password", "", "Password (read from stdin when empty)")
		_ = c.MarkFlagRequired("email")
	}
	registerCmd.Flags().String("name", "", "Display name")
	planCmd.Flags().String("checkout", "", "Buy a plan: monthly, quarterly or semiannual")
}

// readPassword returns --password or the first line of stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/simulado/internal/store"
)

var noticesCmd = &cobra.Command{
	Use:   "notices",
	Short: "List the notices shown on the home screen",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		var notices []store.Notice
		if all, _ := cmd.Flags().GetBool("all"); all {
			notices, err = e.store.Notices().List(cmd.Context())
		} else {
			notices, err = e.store.Notices().Active(cmd.Context(), time.Now())
		}
		if err != nil {
			return err
		}
		writeNotices(cmd.OutOrStdout(), notices)
		return nil
	},
}

var noticeAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Publish a notice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := noticeFromFlags(cmd, args[0])
		if err != nil {
			return err
		}

		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.store.Notices().Create(cmd.Context(), n); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Published notice %d.\n", n.ID)
		return nil
	},
}

func noticeToggleCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid notice id %q", args[0])
			}
			e, err := openEnv(cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			return e.store.Notices().SetActive(cmd.Context(), id, active)
		},
	}
}

func init() {
	noticesCmd.Flags().Bool("all", false, "Include hidden and expired notices")

	registerNoticeFlags(noticeAddCmd)
	noticesCmd.AddCommand(noticeAddCmd,
		noticeToggleCmd("on", "Show a notice again", true),
		noticeToggleCmd("off", "Hide a notice", false))
}

func registerNoticeFlags(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.String("kind", string(store.NoticeNews), "Kind: news, exam, promo or update")
	fl.String("description", "", "Text under the title")
	fl.String("url", "", "Link shown with the notice")
	fl.Int("priority", 0, "Higher priorities are shown first")
	fl.Duration("for", 0, "Hide the notice after this long (default: never)")
}

func noticeFromFlags(cmd *cobra.Command, title string) (*store.Notice, error) {
	fl := cmd.Flags()
	kind, _ := fl.GetString("kind")
	switch store.NoticeKind(kind) {
	case store.NoticeNews, store.NoticeExam, store.NoticePromo, store.NoticeUpdate:
	default:
		return nil, fmt.Errorf("unknown notice kind %q", kind)
	}
	n := &store.Notice{Title: title, Kind: store.NoticeKind(kind), Active: true, CreatedAt: time.Now()}
	n.Description, _ = fl.GetString("description")
	n.ActionURL, _ = fl.GetString("url")
	n.Priority, _ = fl.GetInt("priority")
	if d, _ := fl.GetDuration("for"); d > 0 {
		n.EndsAt = n.CreatedAt.Add(d)
	}
	return n, nil
}

func writeNotices(out io.Writer, notices []store.Notice) {
	if len(notices) == 0 {
		fmt.Fprintln(out, "No notices.")
		return
	}
	for _, n := range notices {
		state := ""
		if !n.Active {
			state = " (hidden)"
		} else if !n.EndsAt.IsZero() && !n.EndsAt.After(time.Now()) {
			state = " (expired)"
		}
		fmt.Fprintf(out, "%4d  %-6s p%-3d %s%s\n", n.ID, n.Kind, n.Priority, n.Title, state)
		if n.Description != "" {
			fmt.Fprintf(out, "      %s\n", n.Description)
		}
		if n.ActionURL != "" {
			fmt.Fprintf(out, "      %s\n", n.ActionURL)
		}
	}
}

package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "simulado",
	Short: "Exam-prep question bank in the terminal",
	Long:  "Simulado: practice multiple-choice exam questions, review mistakes and bookmarks, and track your performance.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStudy(cmd, defaultStudyFlags())
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Database file or URL (overrides SIMULADO_DB env var)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides SIMULADO_LOG_LEVEL)")

	rootCmd.AddCommand(studyCmd)
	rootCmd.AddCommand(optionsCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(rankingCmd)
	rootCmd.AddCommand(bookmarksCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(noticesCmd)
	rootCmd.AddCommand(webhookCmd)
	rootCmd.AddCommand(versionCmd)
}

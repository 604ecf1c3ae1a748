package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "inboxpilot",
	Short: "Email triage assistant: summaries, replies, reminders and chat for your inbox",
	Long: `inboxpilot reads your recent mail over IMAP, categorizes and summarizes it
with a hosted language model, drafts replies, extracts follow-up reminders
and answers questions about your mailbox.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

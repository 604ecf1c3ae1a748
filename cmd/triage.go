package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pathakanu/inboxpilot/internal/textutil"
)

var (
	triageLimit  int
	triageRemind bool
)

func init() {
	rootCmd.AddCommand(triageCmd)

	triageCmd.Flags().IntVar(&triageLimit, "limit", 0, "number of recent emails to fetch (0 = MAX_EMAILS)")
	triageCmd.Flags().BoolVar(&triageRemind, "remind", false, "extract follow-up reminders from the fetched emails")
}

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Fetch, categorize and summarize recent emails",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		result := a.assistant.FetchAndProcess(ctx, triageLimit)
		if len(result.Emails) == 0 {
			fmt.Println("No emails fetched.")
			return nil
		}

		fmt.Printf("%-4s %-11s %-28s %s\n", "#", "CATEGORY", "FROM", "SUBJECT")
		fmt.Println("--------------------------------------------------------------------------")
		for _, e := range result.Emails {
			marker := " "
			if !e.Read {
				marker = "*"
			}
			fmt.Printf("%-3d%s %-11s %-28s %s\n", e.Index, marker, e.Category, textutil.Truncate(e.From, 28), e.Subject)
			fmt.Printf("     %s\n", e.Summary)
		}

		stats := result.Stats
		fmt.Printf("\n%d emails, %d unread, %d today\n", stats.Total, stats.Unread, stats.Today)
		for _, s := range stats.TopSenders {
			fmt.Printf("  %3d  %s\n", s.Count, s.Sender)
		}

		if !triageRemind {
			return nil
		}
		created := a.assistant.ExtractReminders(ctx)
		fmt.Printf("\n%d reminder(s) created\n", len(created))
		for _, r := range created {
			fmt.Printf("  #%d %s (due %s) - %s\n", r.ID, r.Action, r.Due, r.EmailSubject)
		}
		return nil
	},
}

package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

var (
	replyTone  string
	replyLimit int
	replyCopy  bool
	replySend  bool
)

func init() {
	rootCmd.AddCommand(replyCmd)

	replyCmd.Flags().StringVar(&replyTone, "tone", "professional", "reply tone (professional, casual, friendly, formal)")
	replyCmd.Flags().IntVar(&replyLimit, "limit", 0, "number of recent emails to fetch (0 = MAX_EMAILS)")
	replyCmd.Flags().BoolVar(&replyCopy, "copy", false, "copy the draft to the clipboard")
	replyCmd.Flags().BoolVar(&replySend, "send", false, "send the draft as a threaded reply")
}

var replyCmd = &cobra.Command{
	Use:   "reply <index>",
	Short: "Draft a reply to a recent email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid email index %q", args[0])
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		a.assistant.FetchAndProcess(ctx, replyLimit)
		draft, err := a.assistant.GenerateReply(ctx, index, replyTone)
		if err != nil {
			return fmt.Errorf("email %d: %w", index, err)
		}
		fmt.Println(draft)

		if replyCopy {
			if err := clipboard.WriteAll(draft); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not copy to clipboard: %v\n", err)
			} else {
				fmt.Println("\nReply copied to clipboard!")
			}
		}

		if replySend {
			sent, err := a.assistant.SendReply(ctx, index, draft)
			if err != nil {
				return err
			}
			if !sent {
				return fmt.Errorf("reply to email %d was not sent", index)
			}
			fmt.Println("\nReply sent.")
		}
		return nil
	},
}

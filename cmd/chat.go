package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	chatEmail int
	chatFetch bool
)

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().IntVar(&chatEmail, "email", -1, "ask about the email at this index instead of the whole mailbox")
	chatCmd.Flags().BoolVar(&chatFetch, "fetch", true, "fetch recent emails first so answers have mailbox context")
}

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask the assistant about your mailbox or one email",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		message := strings.Join(args, " ")
		if chatFetch || chatEmail >= 0 {
			a.assistant.FetchAndProcess(ctx, 0)
		}

		if chatEmail >= 0 {
			response, _, err := a.assistant.ChatAboutEmail(ctx, chatEmail, message)
			if err != nil {
				return fmt.Errorf("email %d: %w", chatEmail, err)
			}
			fmt.Println(response)
			return nil
		}

		response, _ := a.assistant.GeneralChat(ctx, message)
		fmt.Println(response)
		return nil
	},
}

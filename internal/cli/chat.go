package cli

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"

	"github.com/tranvo/nihongo/internal/chat"
)

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with an assistant that can read your catalog and progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			assistant, err := chat.NewAssistant(a.cfg.Chat, a.db)
			if err != nil {
				return err
			}
			return assistant.Run(cmd.Context(), bufio.NewReader(os.Stdin), cmd.OutOrStdout())
		},
	}
}

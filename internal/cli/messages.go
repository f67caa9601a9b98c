package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"conversation-store/internal/convstore"
	"conversation-store/internal/domain"
)

func newAppendCmd(a *app) *cobra.Command {
	var (
		keys        keyFlags
		userName    string
		messageType string
	)
	cmd := &cobra.Command{
		Use:   "append <text>",
		Short: "Append a message to a conversation",
		Long: `Append a message to a conversation and refresh its metadata.

Text longer than 4000 characters is truncated.

Examples:
  convstore append -c conv-1 -u user-1 "hello there"
  convstore append -c conv-1 -u user-1 --type bot "Hi! How can I help?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, ok := a.store.Append(cmd.Context(), convstore.AppendInput{
				Text:           strings.Join(args, " "),
				ConversationID: keys.conversationID,
				UserID:         keys.userID,
				UserName:       userName,
				MessageType:    messageType,
			})
			if !ok {
				return errors.New("message not saved")
			}
			return writeJSON(cmd.OutOrStdout(), msg)
		},
	}
	keys.register(cmd)
	cmd.Flags().StringVarP(&userName, "name", "n", "", "display name of the user")
	cmd.Flags().StringVarP(&messageType, "type", "t", domain.MessageTypeUser, "message type: user, bot or system")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		keys  keyFlags
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent messages of a conversation",
		Long: `Show the most recent messages of a conversation, oldest first.

Examples:
  convstore history -c conv-1 -u user-1
  convstore history -c conv-1 -u user-1 --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), a.store.History(cmd.Context(), keys.conversationID, keys.userID, limit))
		},
	}
	keys.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "max messages (0 uses the configured default)")
	return cmd
}

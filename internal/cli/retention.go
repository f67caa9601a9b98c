package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type trimResult struct {
	ConversationID string `json:"conversationId"`
	Deleted        int    `json:"deleted"`
}

func newTrimCmd(a *app) *cobra.Command {
	var (
		keys     keyFlags
		keepLast int
	)
	cmd := &cobra.Command{
		Use:   "trim",
		Short: "Delete all but the most recent messages of a conversation",
		Long: `Delete all but the most recent messages of a conversation. Metadata is kept.

Examples:
  convstore trim -c conv-1 -u user-1
  convstore trim -c conv-1 -u user-1 --keep 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := a.store.TrimMessages(cmd.Context(), keys.conversationID, keys.userID, keepLast)
			return writeJSON(cmd.OutOrStdout(), trimResult{ConversationID: keys.conversationID, Deleted: n})
		},
	}
	keys.register(cmd)
	cmd.Flags().IntVarP(&keepLast, "keep", "k", -1, "messages to keep (-1 uses the configured default)")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var (
		keys  keyFlags
		force bool
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a conversation",
		Long: `Delete every message and the metadata of a conversation.
Requires confirmation unless --force is used.

Examples:
  convstore delete -c conv-1 -u user-1
  convstore delete -c conv-1 -u user-1 --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Fprintf(cmd.OutOrStdout(), "About to delete conversation %s of %s\n", keys.conversationID, keys.userID)
				fmt.Fprint(cmd.OutOrStdout(), "\nContinue? [y/N]: ")

				reader := bufio.NewReader(cmd.InOrStdin())
				response, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				response = strings.TrimSpace(strings.ToLower(response))
				if response != "y" && response != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}

			if !a.store.DeleteConversation(cmd.Context(), keys.conversationID, keys.userID) {
				return fmt.Errorf("conversation not found or not deleted: %s", keys.conversationID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", keys.conversationID)
			return nil
		},
	}
	keys.register(cmd)
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")
	return cmd
}

func newSweepCmd(a *app) *cobra.Command {
	var keepLast int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Trim every conversation in the store",
		Long: `Trim every conversation in the store, the same run the scheduled
retention job performs.

Examples:
  convstore sweep
  convstore sweep --keep 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), a.store.Sweep(cmd.Context(), keepLast))
		},
	}
	cmd.Flags().IntVarP(&keepLast, "keep", "k", -1, "messages to keep per conversation (-1 uses the configured default)")
	return cmd
}

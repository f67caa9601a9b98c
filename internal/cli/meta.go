package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func newMetaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Read or write conversation metadata",
		Long: `Read or write the metadata document of a conversation.

Subcommands:
  get    Show the metadata document
  save   Create or update it, merging extra fields
  touch  Record one activity event

Examples:
  convstore meta get -c conv-1 -u user-1
  convstore meta save -c conv-1 -u user-1 --name Ana --set channel=web
  convstore meta touch -c conv-1 -u user-1`,
	}
	cmd.AddCommand(newMetaGetCmd(a))
	cmd.AddCommand(newMetaSaveCmd(a))
	cmd.AddCommand(newMetaTouchCmd(a))
	return cmd
}

func newMetaGetCmd(a *app) *cobra.Command {
	var keys keyFlags
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the metadata document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, ok := a.store.GetMetadata(cmd.Context(), keys.conversationID, keys.userID)
			if !ok {
				return errors.New("metadata not found")
			}
			return writeJSON(cmd.OutOrStdout(), meta)
		},
	}
	keys.register(cmd)
	return cmd
}

func newMetaSaveCmd(a *app) *cobra.Command {
	var (
		keys     keyFlags
		userName string
		fields   []string
	)
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create or update the metadata document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			extra, err := parseFields(fields)
			if err != nil {
				return err
			}
			meta, ok := a.store.SaveMetadata(cmd.Context(), keys.conversationID, keys.userID, userName, extra)
			if !ok {
				return errors.New("metadata not saved")
			}
			return writeJSON(cmd.OutOrStdout(), meta)
		},
	}
	keys.register(cmd)
	cmd.Flags().StringVarP(&userName, "name", "n", "", "display name of the user")
	cmd.Flags().StringArrayVar(&fields, "set", nil, "extra field as key=value (repeatable)")
	return cmd
}

func newMetaTouchCmd(a *app) *cobra.Command {
	var keys keyFlags
	cmd := &cobra.Command{
		Use:   "touch",
		Short: "Record one activity event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.store.RecordActivity(cmd.Context(), keys.conversationID, keys.userID) {
				return errors.New("activity not recorded")
			}
			meta, _ := a.store.GetMetadata(cmd.Context(), keys.conversationID, keys.userID)
			return writeJSON(cmd.OutOrStdout(), meta)
		},
	}
	keys.register(cmd)
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the conversations of a user",
		Long: `List the metadata documents of every conversation of a user.

Examples:
  convstore list -u user-1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), a.store.ListConversations(cmd.Context(), userID))
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

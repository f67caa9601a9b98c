// Package cli provides the command-line interface for the conversation store.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"conversation-store/internal/config"
	"conversation-store/internal/convstore"
	"conversation-store/internal/domain"
	"conversation-store/internal/metrics"
)

// Version is set at build time.
var Version = "0.1.0"

const metricsJob = "convstore_cli"

// Store is the part of *convstore.Store the commands use.
type Store interface {
	Append(ctx context.Context, in convstore.AppendInput) (domain.Message, bool)
	History(ctx context.Context, conversationID, userID string, limit int) []domain.Message
	GetMetadata(ctx context.Context, conversationID, userID string) (domain.ConversationMeta, bool)
	SaveMetadata(ctx context.Context, conversationID, userID, userName string, extra map[string]any) (domain.ConversationMeta, bool)
	RecordActivity(ctx context.Context, conversationID, userID string) bool
	ListConversations(ctx context.Context, userID string) []domain.ConversationMeta
	TrimMessages(ctx context.Context, conversationID, userID string, keepLast int) int
	DeleteConversation(ctx context.Context, conversationID, userID string) bool
	Sweep(ctx context.Context, keepLast int) domain.SweepResult
	Stats(ctx context.Context) domain.Stats
	ConfigInfo() domain.ConfigInfo
	WaitReady(ctx context.Context) bool
	Close(timeout time.Duration) error
}

// Opener builds the store for one command run.
type Opener func(ctx context.Context, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (Store, error)

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (Store, error) {
	return convstore.Open(ctx, cfg, convstore.WithLogger(logger), convstore.WithMetrics(m))
}

// app is the state shared by the commands of one run.
type app struct {
	open Opener

	envFile      string
	readyTimeout time.Duration

	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
	metrics  *metrics.Metrics
	store    Store
}

// NewRootCmd builds the command tree. A nil open uses the real store.
func NewRootCmd(open Opener) *cobra.Command {
	if open == nil {
		open = openStore
	}
	a := &app{open: open}

	root := &cobra.Command{
		Use:   "convstore",
		Short: "Inspect and maintain the conversation store",
		Long: `convstore reads and writes conversation messages and metadata in the
document store used by the bot, and runs retention by hand.

Connection settings come from CONVSTORE_* environment variables, optionally
seeded from a .env file. Output is JSON.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			a.teardown(cmd.Context())
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "load variables from this .env file")
	root.PersistentFlags().DurationVar(&a.readyTimeout, "ready-timeout", 5*time.Second, "how long to wait for the store probe")

	root.AddCommand(newAppendCmd(a))
	root.AddCommand(newHistoryCmd(a))
	root.AddCommand(newMetaCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newTrimCmd(a))
	root.AddCommand(newDeleteCmd(a))
	root.AddCommand(newSweepCmd(a))
	root.AddCommand(newStatsCmd(a))
	root.AddCommand(newInfoCmd(a))
	return root
}

// Execute runs the CLI against the real store.
func Execute() error {
	return NewRootCmd(nil).Execute()
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	// No store for help and version.
	if cmd.Name() == "help" || cmd.Name() == "version" {
		return nil
	}

	var files []string
	if a.envFile != "" {
		files = append(files, a.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	a.logger, a.closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	a.metrics = metrics.New()

	ctx := cmd.Context()
	a.store, err = a.open(ctx, cfg, a.logger, a.metrics)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, a.readyTimeout)
	defer cancel()
	if !a.store.WaitReady(waitCtx) {
		a.logger.Warn("conversation store unavailable, running degraded", "error", a.store.ConfigInfo().Error)
	}
	return nil
}

func (a *app) teardown(ctx context.Context) {
	if a.store != nil {
		if err := a.store.Close(5 * time.Second); err != nil {
			a.logger.Warn("failed to close store", "err", err)
		}
	}
	if err := a.metrics.Push(ctx, a.cfg.PushgatewayURL, metricsJob); err != nil {
		a.logger.Warn("metrics push failed", "err", err)
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

// keyFlags are the flags naming one conversation.
type keyFlags struct {
	conversationID string
	userID         string
}

func (k *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&k.conversationID, "conversation", "c", "", "conversation id (required)")
	cmd.Flags().StringVarP(&k.userID, "user", "u", "", "user id (required)")
	_ = cmd.MarkFlagRequired("conversation")
	_ = cmd.MarkFlagRequired("user")
}

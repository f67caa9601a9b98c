package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"conversation-store/handler"
	"conversation-store/internal/config"
	"conversation-store/internal/convstore"
	"conversation-store/internal/metrics"
)

const metricsJob = "convstore_retention"

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer closeLog()
	slog.SetDefault(logger)

	// ---- Store ----
	m := metrics.New()
	store, err := convstore.Open(ctx, cfg, convstore.WithLogger(logger), convstore.WithMetrics(m))
	if err != nil {
		logger.Error("failed to open conversation store", "err", err)
		os.Exit(1)
	}
	defer store.Close(5 * time.Second)

	// ---- Handler ----
	h, err := handler.NewHandler(store, cfg.KeepLast, logger)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(func(ctx context.Context, event events.CloudWatchEvent) (handler.Response, error) {
		// The first invocation may race the availability probe.
		store.WaitReady(ctx)
		resp, err := h.Handle(ctx, event)
		if perr := m.Push(ctx, cfg.PushgatewayURL, metricsJob); perr != nil {
			logger.Warn("metrics push failed", "err", perr)
		}
		return resp, err
	})
}

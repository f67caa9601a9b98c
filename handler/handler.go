// Package handler is the Lambda entry point of the scheduled retention sweep.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"conversation-store/internal/domain"
)

// ErrUnavailable is returned when the sweep cannot reach the document store,
// so the scheduled invocation is reported as failed.
var ErrUnavailable = errors.New("handler: conversation store unavailable")

// Sweeper trims every conversation to its most recent messages.
type Sweeper interface {
	IsAvailable() bool
	Sweep(ctx context.Context, keepLast int) domain.SweepResult
}

type Handler struct {
	sweeper  Sweeper
	keepLast int
	logger   *slog.Logger
}

// Response is returned to the scheduler and ends up in the invocation log.
type Response struct {
	KeepLast      int `json:"keepLast"`
	Conversations int `json:"conversations"`
	Deleted       int `json:"deleted"`
}

// sweepDetail is the optional event detail, e.g. {"keepLast": 20}.
type sweepDetail struct {
	KeepLast *int `json:"keepLast"`
}

func NewHandler(s Sweeper, keepLast int, logger *slog.Logger) (*Handler, error) {
	if s == nil {
		return nil, errors.New("handler: sweeper must not be nil")
	}
	if keepLast < 0 {
		return nil, fmt.Errorf("handler: keepLast must be >= 0, got %d", keepLast)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sweeper: s, keepLast: keepLast, logger: logger}, nil
}

func (h *Handler) Handle(ctx context.Context, event events.CloudWatchEvent) (Response, error) {
	logger := h.logger.With("eventId", event.ID, "source", event.Source)

	keepLast, err := h.resolveKeepLast(event.Detail)
	if err != nil {
		logger.Warn("invalid sweep event", "err", err)
		return Response{}, err
	}
	if !h.sweeper.IsAvailable() {
		logger.Error("sweep skipped", "err", ErrUnavailable)
		return Response{KeepLast: keepLast}, ErrUnavailable
	}

	res := h.sweeper.Sweep(ctx, keepLast)
	logger.Info("sweep finished", "keepLast", keepLast,
		"conversations", res.Conversations, "deleted", res.Deleted)
	return Response{KeepLast: keepLast, Conversations: res.Conversations, Deleted: res.Deleted}, nil
}

func (h *Handler) resolveKeepLast(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return h.keepLast, nil
	}
	var d sweepDetail
	if err := json.Unmarshal(raw, &d); err != nil {
		return 0, fmt.Errorf("handler: decode detail: %w", err)
	}
	if d.KeepLast == nil {
		return h.keepLast, nil
	}
	if *d.KeepLast < 0 {
		return 0, fmt.Errorf("handler: keepLast must be >= 0, got %d", *d.KeepLast)
	}
	return *d.KeepLast, nil
}

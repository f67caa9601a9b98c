// Package availability tracks whether persistence operations can run.
//
// A Gate is built once per process. A closed gate (missing configuration) stays
// closed for the lifetime of the process. An open gate starts available and
// runs one asynchronous reachability probe; a failed probe closes it and keeps
// the reason for ConfigInfo. Operations that start before the probe finishes
// are allowed to try and fail on their own.
package availability

import (
	"context"
	"log/slog"
	"sync"

	"conversation-store/internal/domain"
)

// Prober checks that the store is reachable and shaped as expected.
type Prober interface {
	Describe(ctx context.Context) error
}

// Settings are the connection parameters reported by ConfigInfo.
type Settings struct {
	Database     string
	Container    string
	PartitionKey string
}

// Gate is the single source of truth for "can persistence operations run".
type Gate struct {
	settings Settings
	logger   *slog.Logger
	observe  func(bool)

	mu          sync.RWMutex
	initialized bool
	available   bool
	reason      string

	ready chan struct{}
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger used for probe diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithObserver is called with the availability every time it is decided.
func WithObserver(fn func(available bool)) Option {
	return func(g *Gate) {
		g.observe = fn
	}
}

func newGate(settings Settings, opts []Option) *Gate {
	g := &Gate{
		settings: settings,
		logger:   slog.Default(),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Closed returns a gate that never opens. reason explains why.
func Closed(settings Settings, reason string, opts ...Option) *Gate {
	g := newGate(settings, opts)
	g.reason = reason
	close(g.ready)
	g.logger.Warn("document store unavailable", "reason", reason)
	g.notify(false)
	return g
}

// Open returns an available gate and probes p in the background. ctx bounds
// the probe only.
func Open(ctx context.Context, settings Settings, p Prober, opts ...Option) *Gate {
	g := newGate(settings, opts)
	g.initialized = true
	g.available = true
	g.notify(true)

	go g.probe(ctx, p)
	return g
}

func (g *Gate) probe(ctx context.Context, p Prober) {
	defer close(g.ready)

	if err := p.Describe(ctx); err != nil {
		g.mu.Lock()
		g.available = false
		g.reason = err.Error()
		g.mu.Unlock()

		g.logger.Error("document store probe failed", "database", g.settings.Database,
			"container", g.settings.Container, "err", err)
		g.notify(false)
		return
	}
	g.logger.Info("document store reachable", "database", g.settings.Database,
		"container", g.settings.Container)
}

func (g *Gate) notify(ok bool) {
	if g.observe != nil {
		g.observe(ok)
	}
}

// IsAvailable reports whether operations should reach the store.
func (g *Gate) IsAvailable() bool {
	if g == nil {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.available
}

// ConfigInfo describes the configuration and its health.
func (g *Gate) ConfigInfo() domain.ConfigInfo {
	if g == nil {
		return domain.ConfigInfo{}
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return domain.ConfigInfo{
		Available:    g.available,
		Initialized:  g.initialized,
		Database:     g.settings.Database,
		Container:    g.settings.Container,
		PartitionKey: g.settings.PartitionKey,
		Error:        g.reason,
	}
}

// WaitReady blocks until the probe has finished or ctx is done. It reports
// availability at that point. Nothing in the store itself waits on this.
func (g *Gate) WaitReady(ctx context.Context) bool {
	select {
	case <-g.ready:
	case <-ctx.Done():
	}
	return g.IsAvailable()
}

// Package metrics exposes Prometheus instrumentation for the conversation
// store. Collectors live on a private registry so several stores (and tests)
// never collide on the default one. Batch callers such as the retention
// Lambda push the registry to a Pushgateway when they finish.
//
// Labels are bounded:
//
//   - op:      outbound store operation (append, history, recordActivity, ...)
//   - outcome: ok | degraded | rejected | error
//   - call:    DynamoDB API call (GetItem, PutItem, Query, ...)
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Operation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics groups the store collectors and the registry they are bound to.
type Metrics struct {
	registry *prometheus.Registry

	ops            *prometheus.CounterVec
	calls          *prometheus.HistogramVec
	available      prometheus.Gauge
	refreshDropped prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convstore_operations_total",
				Help: "Conversation store operations by outcome.",
			},
			[]string{"op", "outcome"},
		),
		calls: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "convstore_store_call_duration_seconds",
				Help:    "Duration of document store API calls in seconds.",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"call"},
		),
		available: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "convstore_available",
				Help: "1 when the document store is configured and reachable.",
			},
		),
		refreshDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "convstore_refresh_dropped_total",
				Help: "Metadata refreshes dropped because the work queue was saturated.",
			},
		),
	}
	m.registry.MustRegister(m.ops, m.calls, m.available, m.refreshDropped)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveOp counts one outbound operation.
func (m *Metrics) ObserveOp(op, outcome string) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op, outcome).Inc()
}

// ObserveCall records the duration of a store call that started at start.
// Intended for use with defer.
func (m *Metrics) ObserveCall(call string, start time.Time) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(call).Observe(time.Since(start).Seconds())
}

// SetAvailable mirrors the availability gate.
func (m *Metrics) SetAvailable(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.available.Set(1)
		return
	}
	m.available.Set(0)
}

// RefreshDropped counts one dropped metadata refresh.
func (m *Metrics) RefreshDropped() {
	if m == nil {
		return
	}
	m.refreshDropped.Inc()
}

// Push sends the registry to a Pushgateway under job. An empty url is a no-op.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("metrics: push to %s: %w", url, err)
	}
	return nil
}

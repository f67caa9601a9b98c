// Package convstore persists conversation messages and per-conversation
// metadata and reads them back for conversational context.
//
// Every exported operation can be called whether or not the document store is
// configured or reachable. Failures are logged, counted and turned into the
// type's empty value (nil slice, false, zero); no error crosses the package
// boundary and nothing is retried.
//
// Metadata writes are read-merge-replace: the current document is read, merged
// with the new state and written back with an unconditional put. Two
// concurrent refreshes of the same conversation may both read the same
// messageCount and lose one increment. That is accepted in exchange for never
// failing with an "already exists" conflict.
package convstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"conversation-store/internal/availability"
	"conversation-store/internal/config"
	"conversation-store/internal/domain"
	"conversation-store/internal/metrics"
	"conversation-store/internal/repository"
)

// documentStore is the subset of *repository.Client the store consumes.
type documentStore interface {
	PutMessage(ctx context.Context, msg domain.Message) error
	QueryMessages(ctx context.Context, userID, conversationID string, limit int) ([]domain.Message, error)
	QueryMessageKeys(ctx context.Context, userID, conversationID string) ([]repository.Key, error)
	QueryConversationKeys(ctx context.Context, userID, conversationID string) ([]repository.Key, error)
	GetMeta(ctx context.Context, userID, conversationID string) (domain.ConversationMeta, error)
	PutMeta(ctx context.Context, meta domain.ConversationMeta) (domain.ConversationMeta, error)
	QueryConversations(ctx context.Context, userID string) ([]domain.ConversationMeta, error)
	ScanConversations(ctx context.Context) ([]domain.ConversationMeta, error)
	Delete(ctx context.Context, userID, id string) error
	CountAll(ctx context.Context) (int64, error)
	CountDocumentType(ctx context.Context, docType string) (int64, error)
	CountMessageType(ctx context.Context, msgType string) (int64, error)
	LatestTimestamp(ctx context.Context) (string, error)
}

// Store is the conversation persistence handle. Build it once per process
// with Open or New and release it with Close.
type Store struct {
	gate *availability.Gate
	docs documentStore
	pool *ants.Pool

	// Refresh bookkeeping: pending counts handoffs not yet accepted by the
	// pool; closing stops new ones.
	mu      sync.Mutex
	closing bool
	pending sync.WaitGroup
	stripes [refreshStripes]sync.Mutex

	logger       *slog.Logger
	metrics      *metrics.Metrics
	loc          *time.Location
	ttl          time.Duration
	keepLast     int
	historyLimit int
	workers      int
	queue        int

	now    func() time.Time
	suffix func() string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records operation outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithLocation sets the zone every stored timestamp is rendered in.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithTTL sets the expiry horizon written on every document.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithKeepLast sets how many messages TrimMessages keeps when called with a
// negative keepLast, and what Sweep uses by default.
func WithKeepLast(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.keepLast = n
		}
	}
}

// WithHistoryLimit sets the History limit used when the caller passes <= 0.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithRefreshWorkers sets the size of the metadata refresh pool.
func WithRefreshWorkers(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithRefreshQueue sets how many metadata refreshes may wait for a free
// worker before new ones are dropped.
func WithRefreshQueue(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.queue = n
		}
	}
}

func defaultStore() *Store {
	return &Store{
		logger:       slog.Default(),
		loc:          time.UTC,
		ttl:          config.DefaultTTL,
		keepLast:     config.DefaultKeepLast,
		historyLimit: config.DefaultHistoryLimit,
		workers:      config.DefaultRefreshWorkers,
		queue:        config.DefaultRefreshQueue,
		now:          time.Now,
		suffix:       randomSuffix,
	}
}

// New creates a Store over docs guarded by gate. docs may be nil only when
// the gate is closed.
func New(gate *availability.Gate, docs documentStore, opts ...Option) (*Store, error) {
	if gate == nil {
		return nil, errors.New("convstore: gate must not be nil")
	}
	if docs == nil && gate.IsAvailable() {
		return nil, errors.New("convstore: document store must not be nil when the gate is open")
	}

	s := defaultStore()
	s.gate = gate
	s.docs = docs
	for _, opt := range opts {
		opt(s)
	}

	pool, err := ants.NewPool(s.workers,
		ants.WithMaxBlockingTasks(s.queue),
		ants.WithPanicHandler(func(p any) {
			s.logger.Error("metadata refresh panicked", "panic", p)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("convstore: create refresh pool: %w", err)
	}
	s.pool = pool
	return s, nil
}

// Close stops accepting metadata refreshes and waits up to timeout for the
// queued and running ones to finish.
func (s *Store) Close(timeout time.Duration) error {
	if s == nil || s.pool == nil {
		return nil
	}
	deadline := time.Now().Add(timeout)

	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	queued := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(queued)
	}()
	select {
	case <-queued:
	case <-time.After(timeout):
		return errors.New("convstore: timed out waiting for queued metadata refreshes")
	}

	if err := s.pool.ReleaseTimeout(time.Until(deadline)); err != nil {
		return fmt.Errorf("convstore: release refresh pool: %w", err)
	}
	return nil
}

// IsAvailable reports whether operations reach the document store.
func (s *Store) IsAvailable() bool {
	return s.gate.IsAvailable()
}

// ConfigInfo describes the store configuration and its health.
func (s *Store) ConfigInfo() domain.ConfigInfo {
	return s.gate.ConfigInfo()
}

// WaitReady waits for the availability probe. Only callers that want the
// probe verdict up front need it.
func (s *Store) WaitReady(ctx context.Context) bool {
	return s.gate.WaitReady(ctx)
}

// guard runs the checks shared by every operation: argument validation first,
// then availability. It reports whether the operation may proceed.
func (s *Store) guard(op string, conversationID, userID string) bool {
	if err := validateKeys(conversationID, userID); err != nil {
		s.absorb(newError(op, ErrorInvalidInput, "validation", err))
		return false
	}
	return s.available(op)
}

func (s *Store) available(op string) bool {
	if s.gate.IsAvailable() {
		return true
	}
	s.absorb(newError(op, ErrorUnavailable, "gate_closed", ErrUnavailable))
	return false
}

func validateKeys(conversationID, userID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return ErrMissingConversationID
	}
	if strings.TrimSpace(userID) == "" {
		return ErrMissingUserID
	}
	return nil
}

// absorb is where an error stops travelling: it is logged and counted.
func (s *Store) absorb(e *Error, attrs ...any) {
	attrs = append(attrs, "op", e.Op, "code", string(e.Code), "reason", e.Reason, "err", e.Err)
	switch e.Code {
	case ErrorInvalidInput:
		s.metrics.ObserveOp(e.Op, metrics.OutcomeRejected)
		s.logger.Warn("conversation store rejected call", attrs...)
	case ErrorUnavailable:
		s.metrics.ObserveOp(e.Op, metrics.OutcomeDegraded)
		s.logger.Debug("conversation store unavailable", attrs...)
	default:
		s.metrics.ObserveOp(e.Op, metrics.OutcomeError)
		s.logger.Error("conversation store call failed", attrs...)
	}
}

func (s *Store) ok(op string) {
	s.metrics.ObserveOp(op, metrics.OutcomeOK)
}

// stamp renders t the way every stored timestamp is written.
func (s *Store) stamp(t time.Time) string {
	return t.In(s.loc).Format(domain.TimeLayout)
}

func (s *Store) expiry(t time.Time) int64 {
	return t.Add(s.ttl).Unix()
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

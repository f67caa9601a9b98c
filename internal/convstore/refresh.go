package convstore

import (
	"context"
	"hash/fnv"
	"sync"
)

// refreshStripes bounds the per-conversation locks that keep refreshes of the
// same conversation from overlapping inside this process.
const refreshStripes = 64

// scheduleRefresh hands a metadata refresh for a conversation to the worker
// pool without blocking the caller. The refresh waits in the pool queue when
// every worker is busy; it is dropped and logged only when the queue is full
// or the store is closing.
func (s *Store) scheduleRefresh(ctx context.Context, conversationID, userID, userName string) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		s.dropRefresh(conversationID, userID, errStoreClosing)
		return
	}
	s.pending.Add(1)
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer s.pending.Done()
		err := s.pool.Submit(func() {
			mu := s.stripe(conversationID, userID)
			mu.Lock()
			defer mu.Unlock()
			if !s.recordActivity(ctx, conversationID, userID, userName) {
				s.logger.Warn("metadata refresh failed", "conversationId", conversationID, "userId", userID)
			}
		})
		if err != nil {
			s.dropRefresh(conversationID, userID, err)
		}
	}()
}

func (s *Store) dropRefresh(conversationID, userID string, err error) {
	s.metrics.RefreshDropped()
	s.logger.Warn("metadata refresh dropped", "conversationId", conversationID, "userId", userID, "err", err)
}

func (s *Store) stripe(conversationID, userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(conversationID))
	return &s.stripes[h.Sum32()%refreshStripes]
}

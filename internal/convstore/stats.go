package convstore

import (
	"context"
	"errors"

	"conversation-store/internal/domain"
	"conversation-store/internal/repository"
)

// Stats counts documents across the whole store. Each count is its own query;
// a failed one is marked on its field and the others are still reported.
func (s *Store) Stats(ctx context.Context) domain.Stats {
	const op = "stats"
	st := domain.Stats{
		Available: s.gate.IsAvailable(),
		Timestamp: s.stamp(s.now()),
	}
	if !s.available(op) {
		return st
	}

	st.TotalDocuments = s.count(ctx, "totalDocuments", s.docs.CountAll)
	st.Conversations = s.count(ctx, "conversations", func(ctx context.Context) (int64, error) {
		return s.docs.CountDocumentType(ctx, domain.DocumentTypeConversation)
	})
	st.UserMessages = s.countMessages(ctx, domain.MessageTypeUser)
	st.BotMessages = s.countMessages(ctx, domain.MessageTypeBot)
	st.SystemMessages = s.countMessages(ctx, domain.MessageTypeSystem)
	st.TotalMessages = st.UserMessages.Or(0) + st.BotMessages.Or(0) + st.SystemMessages.Or(0)

	latest, err := s.docs.LatestTimestamp(ctx)
	switch {
	case err == nil:
		st.RecentActivity = latest
	case !errors.Is(err, repository.ErrNotFound):
		s.logger.Warn("stats query failed", "field", "recentActivity", "err", err)
	}
	s.ok(op)
	return st
}

func (s *Store) countMessages(ctx context.Context, msgType string) domain.Count {
	return s.count(ctx, msgType+"Messages", func(ctx context.Context) (int64, error) {
		return s.docs.CountMessageType(ctx, msgType)
	})
}

func (s *Store) count(ctx context.Context, field string, query func(context.Context) (int64, error)) domain.Count {
	n, err := query(ctx)
	if err != nil {
		s.logger.Warn("stats query failed", "field", field, "err", err)
		return domain.Count{Err: err.Error()}
	}
	return domain.Count{Value: n}
}

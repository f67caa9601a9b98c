package convstore

import (
	"context"
	"slices"

	"conversation-store/internal/domain"
	"conversation-store/internal/repository"
)

// TrimMessages keeps the keepLast most recent messages of a conversation and
// deletes the rest, one document at a time. A negative keepLast uses the
// configured default. It returns how many documents were deleted; a failed
// delete is logged and skipped.
func (s *Store) TrimMessages(ctx context.Context, conversationID, userID string, keepLast int) int {
	const op = "trimMessages"
	if !s.guard(op, conversationID, userID) {
		return 0
	}
	if keepLast < 0 {
		keepLast = s.keepLast
	}

	keys, err := s.docs.QueryMessageKeys(ctx, userID, conversationID)
	if err != nil {
		s.absorb(newError(op, ErrorStore, "query_message_keys", err),
			"conversationId", conversationID, "userId", userID)
		return 0
	}
	s.ok(op)
	if len(keys) <= keepLast {
		return 0
	}

	// Newest first, by instant.
	slices.SortStableFunc(keys, func(a, b repository.Key) int {
		return compareTimestamps(b.Timestamp, a.Timestamp)
	})
	deleted := s.deleteKeys(ctx, op, userID, keys[keepLast:])
	s.logger.Info("trimmed conversation", "conversationId", conversationID, "userId", userID,
		"kept", keepLast, "deleted", deleted)
	return deleted
}

// DeleteConversation removes every message and the metadata document of a
// conversation. It reports whether at least one document was deleted.
func (s *Store) DeleteConversation(ctx context.Context, conversationID, userID string) bool {
	const op = "deleteConversation"
	if !s.guard(op, conversationID, userID) {
		return false
	}

	keys, err := s.docs.QueryConversationKeys(ctx, userID, conversationID)
	if err != nil {
		s.absorb(newError(op, ErrorStore, "query_conversation_keys", err),
			"conversationId", conversationID, "userId", userID)
		return false
	}
	s.ok(op)

	deleted := s.deleteKeys(ctx, op, userID, keys)
	s.logger.Info("deleted conversation", "conversationId", conversationID, "userId", userID,
		"documents", len(keys), "deleted", deleted)
	return deleted > 0
}

// Sweep trims every conversation in the store. It is meant for a scheduled
// caller; a negative keepLast uses the configured default.
func (s *Store) Sweep(ctx context.Context, keepLast int) domain.SweepResult {
	const op = "sweep"
	var res domain.SweepResult
	if !s.available(op) {
		return res
	}

	metas, err := s.docs.ScanConversations(ctx)
	if err != nil {
		s.absorb(newError(op, ErrorStore, "scan_conversations", err))
		return res
	}
	s.ok(op)

	for _, meta := range metas {
		if ctx.Err() != nil {
			s.logger.Warn("sweep interrupted", "err", ctx.Err(), "done", res.Conversations, "total", len(metas))
			break
		}
		res.Deleted += s.TrimMessages(ctx, meta.ConversationID, meta.UserID, keepLast)
		res.Conversations++
	}
	return res
}

func (s *Store) deleteKeys(ctx context.Context, op, userID string, keys []repository.Key) int {
	deleted := 0
	for _, k := range keys {
		if err := s.docs.Delete(ctx, userID, k.ID); err != nil {
			s.logger.Warn("delete failed, skipping", "op", op, "userId", userID, "id", k.ID, "err", err)
			continue
		}
		deleted++
	}
	return deleted
}

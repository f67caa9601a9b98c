package convstore

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"

	"conversation-store/internal/domain"
	"conversation-store/internal/repository"
)

// GetMetadata returns the metadata document of a conversation. ok is false
// when there is none or it could not be read.
func (s *Store) GetMetadata(ctx context.Context, conversationID, userID string) (domain.ConversationMeta, bool) {
	const op = "getMetadata"
	if !s.guard(op, conversationID, userID) {
		return domain.ConversationMeta{}, false
	}

	meta, err := s.docs.GetMeta(ctx, userID, conversationID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.ok(op)
		return domain.ConversationMeta{}, false
	case err != nil:
		s.absorb(newError(op, ErrorStore, "get_meta", err),
			"conversationId", conversationID, "userId", userID)
		return domain.ConversationMeta{}, false
	}
	s.ok(op)
	return meta, true
}

// SaveMetadata writes the metadata document of a conversation, creating it if
// needed. createdAt and messageCount are kept from the stored document; extra
// fields are merged over the stored ones, except fields the store manages.
func (s *Store) SaveMetadata(ctx context.Context, conversationID, userID, userName string, extra map[string]any) (domain.ConversationMeta, bool) {
	const op = "saveMetadata"
	if !s.guard(op, conversationID, userID) {
		return domain.ConversationMeta{}, false
	}

	now := s.now()
	prior := s.readPrior(ctx, op, conversationID, userID)
	next := s.mergeMeta(prior, conversationID, userID, now)
	if userName != "" {
		next.UserName = userName
	}
	for k, v := range extra {
		if repository.IsReservedMetaField(k) {
			continue
		}
		if next.Extra == nil {
			next.Extra = make(map[string]any, len(extra))
		}
		next.Extra[k] = v
	}

	saved, err := s.docs.PutMeta(ctx, next)
	if err != nil {
		s.absorb(newError(op, ErrorStore, "put_meta", err),
			"conversationId", conversationID, "userId", userID)
		return domain.ConversationMeta{}, false
	}
	s.ok(op)
	return saved, true
}

// RecordActivity counts one activity event on a conversation: it bumps
// messageCount, refreshes lastActivity and creates the document on first use.
// It reports whether the write was confirmed.
func (s *Store) RecordActivity(ctx context.Context, conversationID, userID string) bool {
	return s.recordActivity(ctx, conversationID, userID, "")
}

// recordActivity seeds userName on a new document. A stored name wins.
func (s *Store) recordActivity(ctx context.Context, conversationID, userID, userName string) bool {
	const op = "recordActivity"
	if !s.guard(op, conversationID, userID) {
		return false
	}

	now := s.now()
	prior := s.readPrior(ctx, op, conversationID, userID)
	next := s.mergeMeta(prior, conversationID, userID, now)
	next.MessageCount = prior.MessageCount + 1
	if next.UserName == "" {
		next.UserName = userName
	}

	// Unconditional put, never create-only: two first messages racing on the
	// same conversation must both succeed.
	saved, err := s.docs.PutMeta(ctx, next)
	if err != nil {
		s.absorb(newError(op, ErrorStore, "put_meta", err),
			"conversationId", conversationID, "userId", userID)
		return false
	}
	s.ok(op)
	return saved.ID != ""
}

// ListConversations returns the metadata documents of one user.
func (s *Store) ListConversations(ctx context.Context, userID string) []domain.ConversationMeta {
	const op = "listConversations"
	if strings.TrimSpace(userID) == "" {
		s.absorb(newError(op, ErrorInvalidInput, "validation", ErrMissingUserID))
		return []domain.ConversationMeta{}
	}
	if !s.available(op) {
		return []domain.ConversationMeta{}
	}

	metas, err := s.docs.QueryConversations(ctx, userID)
	if err != nil {
		s.absorb(newError(op, ErrorStore, "query_conversations", err), "userId", userID)
		return []domain.ConversationMeta{}
	}
	s.ok(op)
	return metas
}

// readPrior returns the stored metadata, or the zero document when there is
// none. A failed read is logged and treated like a missing document so the
// write that follows still happens.
func (s *Store) readPrior(ctx context.Context, op, conversationID, userID string) domain.ConversationMeta {
	prior, err := s.docs.GetMeta(ctx, userID, conversationID)
	switch {
	case err == nil:
		return prior
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Debug("no metadata yet", "op", op, "conversationId", conversationID, "userId", userID)
	default:
		s.logger.Warn("metadata read failed, starting from empty state", "op", op,
			"conversationId", conversationID, "userId", userID, "err", err)
	}
	return domain.ConversationMeta{}
}

// mergeMeta builds the next metadata state from prior. createdAt, userName,
// messageCount and extra fields carry over; the rest is set for now.
func (s *Store) mergeMeta(prior domain.ConversationMeta, conversationID, userID string, now time.Time) domain.ConversationMeta {
	stamp := s.stamp(now)
	next := domain.ConversationMeta{
		ID:             domain.ConversationMetaID(conversationID),
		ConversationID: conversationID,
		UserID:         userID,
		UserName:       prior.UserName,
		DocumentType:   domain.DocumentTypeConversation,
		CreatedAt:      prior.CreatedAt,
		LastActivity:   stamp,
		MessageCount:   prior.MessageCount,
		IsActive:       true,
		TTL:            s.expiry(now),
		Extra:          maps.Clone(prior.Extra),
	}
	if next.CreatedAt == "" {
		next.CreatedAt = stamp
	}
	return next
}

package convstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"conversation-store/internal/domain"
)

// AppendInput is one message to persist. MessageType defaults to user.
type AppendInput struct {
	Text           string
	ConversationID string
	UserID         string
	UserName       string
	MessageType    string
}

// Append stores a message and schedules a metadata refresh for its
// conversation. The refresh runs after Append returns and its failure is only
// logged. ok is false when the message was not saved.
func (s *Store) Append(ctx context.Context, in AppendInput) (domain.Message, bool) {
	const op = "append"
	if strings.TrimSpace(in.Text) == "" {
		s.absorb(newError(op, ErrorInvalidInput, "validation", ErrEmptyMessage))
		return domain.Message{}, false
	}
	if !s.guard(op, in.ConversationID, in.UserID) {
		return domain.Message{}, false
	}

	msg := s.newMessage(in, s.now())
	if err := s.docs.PutMessage(ctx, msg); err != nil {
		s.absorb(newError(op, ErrorStore, "put_message", err),
			"conversationId", in.ConversationID, "userId", in.UserID)
		return domain.Message{}, false
	}
	s.ok(op)

	s.scheduleRefresh(ctx, msg.ConversationID, msg.UserID, msg.UserName)
	return msg, true
}

// History returns up to limit of the most recent messages of a conversation,
// oldest first. A limit <= 0 uses the configured default.
func (s *Store) History(ctx context.Context, conversationID, userID string, limit int) []domain.Message {
	const op = "history"
	if !s.guard(op, conversationID, userID) {
		return []domain.Message{}
	}
	if limit <= 0 {
		limit = s.historyLimit
	}

	msgs, err := s.docs.QueryMessages(ctx, userID, conversationID, limit)
	if err != nil {
		s.absorb(newError(op, ErrorStore, "query_messages", err),
			"conversationId", conversationID, "userId", userID)
		return []domain.Message{}
	}
	s.ok(op)

	// The store returns newest first. Reverse, then sort on the parsed instant
	// so equal or zone-shifted strings cannot reorder the result.
	slices.Reverse(msgs)
	slices.SortStableFunc(msgs, func(a, b domain.Message) int {
		return compareTimestamps(a.Timestamp, b.Timestamp)
	})
	return msgs
}

func (s *Store) newMessage(in AppendInput, now time.Time) domain.Message {
	id := fmt.Sprintf("msg_%d_%s", now.UnixMilli(), s.suffix())
	msgType := strings.TrimSpace(in.MessageType)
	if msgType == "" {
		msgType = domain.MessageTypeUser
	}
	ts := s.stamp(now)
	return domain.Message{
		ID:             id,
		MessageID:      id,
		ConversationID: in.ConversationID,
		UserID:         in.UserID,
		UserName:       in.UserName,
		Text:           truncate(in.Text, domain.MaxMessageLength),
		MessageType:    msgType,
		Timestamp:      ts,
		DateCreated:    ts,
		TTL:            s.expiry(now),
	}
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// compareTimestamps orders two stored timestamps by instant, falling back to
// string order when either does not parse.
func compareTimestamps(a, b string) int {
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return ta.Compare(tb)
}

package convstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func appendN(t *testing.T, s *Store, conversationID, userID string, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		msg, ok := s.Append(context.Background(), AppendInput{Text: "m", ConversationID: conversationID, UserID: userID})
		require.True(t, ok)
		ids = append(ids, msg.ID)
	}
	return ids
}

func historyIDs(s *Store, conversationID, userID string) []string {
	var ids []string
	for _, m := range s.History(context.Background(), conversationID, userID, 100) {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestTrimMessages_KeepsNewest(t *testing.T) {
	s := newTestStore(t, newMemDocs())
	ids := appendN(t, s, "c1", "u1", 5)
	flush(t, s)

	deleted := s.TrimMessages(context.Background(), "c1", "u1", 2)
	require.Equal(t, 3, deleted)
	require.Equal(t, ids[3:], historyIDs(s, "c1", "u1"))

	_, ok := s.GetMetadata(context.Background(), "c1", "u1")
	require.True(t, ok, "trim must not touch metadata")
}

func TestTrimMessages_NothingToTrim(t *testing.T) {
	docs := newMemDocs()
	s := newTestStore(t, docs)
	ids := appendN(t, s, "c1", "u1", 3)
	flush(t, s)

	require.Zero(t, s.TrimMessages(context.Background(), "c1", "u1", 3))
	require.Zero(t, s.TrimMessages(context.Background(), "c1", "u1", 10))
	require.Equal(t, ids, historyIDs(s, "c1", "u1"))
}

func TestTrimMessages_NegativeUsesDefault(t *testing.T) {
	s := newTestStore(t, newMemDocs(), WithKeepLast(1))
	ids := appendN(t, s, "c1", "u1", 3)
	flush(t, s)

	require.Equal(t, 2, s.TrimMessages(context.Background(), "c1", "u1", -1))
	require.Equal(t, ids[2:], historyIDs(s, "c1", "u1"))
}

func TestTrimMessages_ZeroDeletesAll(t *testing.T) {
	s := newTestStore(t, newMemDocs())
	appendN(t, s, "c1", "u1", 3)
	flush(t, s)

	require.Equal(t, 3, s.TrimMessages(context.Background(), "c1", "u1", 0))
	require.Empty(t, historyIDs(s, "c1", "u1"))
}

func TestTrimMessages_SkipsFailedDeletes(t *testing.T) {
	docs := newMemDocs()
	s := newTestStore(t, docs)
	ids := appendN(t, s, "c1", "u1", 4)
	flush(t, s)
	docs.failDelete[ids[0]] = errBoom

	require.Equal(t, 1, s.TrimMessages(context.Background(), "c1", "u1", 2))
	require.Equal(t, []string{ids[0], ids[2], ids[3]}, historyIDs(s, "c1", "u1"))
}

func TestTrimMessages_QueryFailure(t *testing.T) {
	docs := newMemDocs()
	docs.failOn("QueryMessageKeys", errBoom)
	s := newTestStore(t, docs)

	require.Zero(t, s.TrimMessages(context.Background(), "c1", "u1", 2))
}

func TestDeleteConversation_RemovesEverything(t *testing.T) {
	s := newTestStore(t, newMemDocs())
	ctx := context.Background()
	appendN(t, s, "c1", "u1", 3)
	appendN(t, s, "c2", "u1", 1)
	flush(t, s)

	require.True(t, s.DeleteConversation(ctx, "c1", "u1"))

	require.Empty(t, s.History(ctx, "c1", "u1", 0))
	_, ok := s.GetMetadata(ctx, "c1", "u1")
	require.False(t, ok)
	require.Len(t, s.History(ctx, "c2", "u1", 0), 1)
}

func TestDeleteConversation_Missing(t *testing.T) {
	s := newTestStore(t, newMemDocs())

	require.False(t, s.DeleteConversation(context.Background(), "nope", "u1"))
}

func TestDeleteConversation_PartialFailureStillReportsDeleted(t *testing.T) {
	docs := newMemDocs()
	s := newTestStore(t, docs)
	ids := appendN(t, s, "c1", "u1", 2)
	flush(t, s)
	docs.failDelete[ids[0]] = errBoom

	require.True(t, s.DeleteConversation(context.Background(), "c1", "u1"))
	require.Equal(t, ids[:1], historyIDs(s, "c1", "u1"))
}

func TestSweep_TrimsEveryConversation(t *testing.T) {
	s := newTestStore(t, newMemDocs())
	appendN(t, s, "c1", "u1", 4)
	appendN(t, s, "c2", "u2", 1)
	flush(t, s)

	res := s.Sweep(context.Background(), 2)
	require.Equal(t, 2, res.Conversations)
	require.Equal(t, 2, res.Deleted)
	require.Len(t, historyIDs(s, "c1", "u1"), 2)
	require.Len(t, historyIDs(s, "c2", "u2"), 1)
}

func TestSweep_ScanFailure(t *testing.T) {
	docs := newMemDocs()
	docs.failOn("ScanConversations", errBoom)
	s := newTestStore(t, docs)

	require.Zero(t, s.Sweep(context.Background(), 2))
}

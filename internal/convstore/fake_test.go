package convstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"conversation-store/internal/availability"
	"conversation-store/internal/domain"
	"conversation-store/internal/repository"
)

var errBoom = errors.New("boom")

// memDocs is an in-memory documentStore. fail injects an error per method
// name; failDelete injects one per document id.
type memDocs struct {
	mu         sync.Mutex
	msgs       map[string]domain.Message
	metas      map[string]domain.ConversationMeta
	calls      int
	fail       map[string]error
	failDelete map[string]error
	getDelay   time.Duration
}

func newMemDocs() *memDocs {
	return &memDocs{
		msgs:       map[string]domain.Message{},
		metas:      map[string]domain.ConversationMeta{},
		fail:       map[string]error{},
		failDelete: map[string]error{},
	}
}

func (m *memDocs) enter(method string) error {
	m.calls++
	return m.fail[method]
}

func (m *memDocs) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *memDocs) failOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[method] = err
}

func metaKey(userID, conversationID string) string {
	return userID + "/" + domain.ConversationMetaID(conversationID)
}

func (m *memDocs) Describe(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fail["Describe"]
}

func (m *memDocs) PutMessage(_ context.Context, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("PutMessage"); err != nil {
		return err
	}
	m.msgs[msg.UserID+"/"+msg.ID] = msg
	return nil
}

func (m *memDocs) conversation(userID, conversationID string) []domain.Message {
	var out []domain.Message
	for _, msg := range m.msgs {
		if msg.UserID == userID && msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *memDocs) QueryMessages(_ context.Context, userID, conversationID string, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("QueryMessages"); err != nil {
		return nil, err
	}
	out := m.conversation(userID, conversationID)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memDocs) QueryMessageKeys(_ context.Context, userID, conversationID string) ([]repository.Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("QueryMessageKeys"); err != nil {
		return nil, err
	}
	msgs := m.conversation(userID, conversationID)
	keys := make([]repository.Key, 0, len(msgs))
	// Oldest first, so the store has to order them itself.
	for i := len(msgs) - 1; i >= 0; i-- {
		keys = append(keys, repository.Key{ID: msgs[i].ID, Timestamp: msgs[i].Timestamp})
	}
	return keys, nil
}

func (m *memDocs) QueryConversationKeys(_ context.Context, userID, conversationID string) ([]repository.Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("QueryConversationKeys"); err != nil {
		return nil, err
	}
	var keys []repository.Key
	for _, msg := range m.conversation(userID, conversationID) {
		keys = append(keys, repository.Key{ID: msg.ID, Timestamp: msg.Timestamp})
	}
	if meta, ok := m.metas[metaKey(userID, conversationID)]; ok {
		keys = append(keys, repository.Key{ID: meta.ID})
	}
	return keys, nil
}

func (m *memDocs) GetMeta(_ context.Context, userID, conversationID string) (domain.ConversationMeta, error) {
	if m.getDelay > 0 {
		time.Sleep(m.getDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetMeta"); err != nil {
		return domain.ConversationMeta{}, err
	}
	meta, ok := m.metas[metaKey(userID, conversationID)]
	if !ok {
		return domain.ConversationMeta{}, repository.ErrNotFound
	}
	return meta, nil
}

func (m *memDocs) PutMeta(_ context.Context, meta domain.ConversationMeta) (domain.ConversationMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("PutMeta"); err != nil {
		return domain.ConversationMeta{}, err
	}
	m.metas[metaKey(meta.UserID, meta.ConversationID)] = meta
	return meta, nil
}

func (m *memDocs) QueryConversations(_ context.Context, userID string) ([]domain.ConversationMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("QueryConversations"); err != nil {
		return nil, err
	}
	var out []domain.ConversationMeta
	for _, meta := range m.metas {
		if meta.UserID == userID {
			out = append(out, meta)
		}
	}
	return out, nil
}

func (m *memDocs) ScanConversations(_ context.Context) ([]domain.ConversationMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ScanConversations"); err != nil {
		return nil, err
	}
	out := make([]domain.ConversationMeta, 0, len(m.metas))
	for _, meta := range m.metas {
		out = append(out, meta)
	}
	return out, nil
}

func (m *memDocs) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Delete"); err != nil {
		return err
	}
	if err := m.failDelete[id]; err != nil {
		return err
	}
	delete(m.msgs, userID+"/"+id)
	delete(m.metas, userID+"/"+id)
	return nil
}

func (m *memDocs) CountAll(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CountAll"); err != nil {
		return 0, err
	}
	return int64(len(m.msgs) + len(m.metas)), nil
}

func (m *memDocs) CountDocumentType(_ context.Context, docType string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CountDocumentType"); err != nil {
		return 0, err
	}
	if docType != domain.DocumentTypeConversation {
		return 0, nil
	}
	return int64(len(m.metas)), nil
}

func (m *memDocs) CountMessageType(_ context.Context, msgType string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CountMessageType:" + msgType); err != nil {
		return 0, err
	}
	var n int64
	for _, msg := range m.msgs {
		if msg.MessageType == msgType {
			n++
		}
	}
	return n, nil
}

func (m *memDocs) LatestTimestamp(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("LatestTimestamp"); err != nil {
		return "", err
	}
	latest := ""
	for _, msg := range m.msgs {
		if msg.Timestamp > latest {
			latest = msg.Timestamp
		}
	}
	if latest == "" {
		return "", repository.ErrNotFound
	}
	return latest, nil
}

// stepClock advances one second per reading.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

var testSettings = availability.Settings{Database: "bot", Container: "conversations", PartitionKey: "/userId"}

// newTestStore returns an available Store over docs with a deterministic
// clock and id suffix.
func newTestStore(t *testing.T, docs *memDocs, opts ...Option) *Store {
	t.Helper()
	gate := availability.Open(context.Background(), testSettings, docs)
	require.True(t, gate.WaitReady(context.Background()))
	return buildTestStore(t, gate, docs, opts...)
}

func newClosedStore(t *testing.T, docs *memDocs) *Store {
	t.Helper()
	gate := availability.Closed(testSettings, "missing configuration: CONVSTORE_KEY")
	return buildTestStore(t, gate, docs)
}

func buildTestStore(t *testing.T, gate *availability.Gate, docs *memDocs, opts ...Option) *Store {
	t.Helper()
	s, err := New(gate, docs, opts...)
	require.NoError(t, err)

	clock := &stepClock{cur: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)}
	var seq int
	var seqMu sync.Mutex
	s.now = clock.now
	s.suffix = func() string {
		seqMu.Lock()
		defer seqMu.Unlock()
		seq++
		return fmt.Sprintf("%09d", seq)
	}
	t.Cleanup(func() { _ = s.Close(time.Second) })
	return s
}

// flush waits for queued metadata refreshes by releasing the pool. The store
// keeps serving every operation; later refreshes are dropped.
func flush(t *testing.T, s *Store) {
	t.Helper()
	require.NoError(t, s.Close(time.Second))
}

package convstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"conversation-store/internal/availability"
	"conversation-store/internal/config"
	"conversation-store/internal/domain"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, newMemDocs())
	require.Error(t, err)

	open := availability.Open(context.Background(), testSettings, newMemDocs())
	_, err = New(open, nil)
	require.Error(t, err)

	s, err := New(availability.Closed(testSettings, "off"), nil)
	require.NoError(t, err)
	require.NoError(t, s.Close(time.Second))
}

func TestClosedStore_NeverTouchesDocuments(t *testing.T) {
	docs := newMemDocs()
	s := newClosedStore(t, docs)
	ctx := context.Background()

	_, ok := s.Append(ctx, AppendInput{Text: "hi", ConversationID: "c1", UserID: "u1"})
	require.False(t, ok)
	require.Empty(t, s.History(ctx, "c1", "u1", 5))
	_, ok = s.SaveMetadata(ctx, "c1", "u1", "Ana", nil)
	require.False(t, ok)
	_, ok = s.GetMetadata(ctx, "c1", "u1")
	require.False(t, ok)
	require.False(t, s.RecordActivity(ctx, "c1", "u1"))
	require.Zero(t, s.TrimMessages(ctx, "c1", "u1", 2))
	require.False(t, s.DeleteConversation(ctx, "c1", "u1"))
	require.Empty(t, s.ListConversations(ctx, "u1"))
	require.Zero(t, s.Sweep(ctx, 2))

	st := s.Stats(ctx)
	require.False(t, st.Available)
	require.NotEmpty(t, st.Timestamp)
	require.Equal(t, domain.Count{}, st.TotalDocuments)

	require.False(t, s.IsAvailable())
	info := s.ConfigInfo()
	require.False(t, info.Initialized)
	require.Equal(t, "bot", info.Database)
	require.Contains(t, info.Error, "CONVSTORE_KEY")

	require.Zero(t, docs.callCount())
}

func TestFailedProbe_DegradesStore(t *testing.T) {
	docs := newMemDocs()
	docs.failOn("Describe", errBoom)
	gate := availability.Open(context.Background(), testSettings, docs)
	require.False(t, gate.WaitReady(context.Background()))
	s := buildTestStore(t, gate, docs)

	require.False(t, s.RecordActivity(context.Background(), "c1", "u1"))
	info := s.ConfigInfo()
	require.True(t, info.Initialized)
	require.False(t, info.Available)
	require.Equal(t, "boom", info.Error)
	require.Zero(t, docs.callCount())
}

func TestValidation_PrecedesAvailability(t *testing.T) {
	docs := newMemDocs()
	s := newTestStore(t, docs)
	ctx := context.Background()

	require.Empty(t, s.History(ctx, "", "u1", 5))
	require.False(t, s.RecordActivity(ctx, "c1", ""))
	_, ok := s.GetMetadata(ctx, " ", "u1")
	require.False(t, ok)
	require.Zero(t, s.TrimMessages(ctx, "", "", 1))
	require.False(t, s.DeleteConversation(ctx, "c1", " "))
	require.Zero(t, docs.callCount())
}

func TestStamp_UsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	s := newTestStore(t, newMemDocs(), WithLocation(loc))

	got := s.stamp(time.Date(2026, 10, 17, 17, 0, 0, 0, time.UTC))
	require.Equal(t, "2026-10-17T11:00:00.000-06:00", got)
}

func TestRandomSuffix(t *testing.T) {
	a, b := randomSuffix(), randomSuffix()
	require.Len(t, a, 9)
	require.Regexp(t, `^[0-9a-f]{9}$`, a)
	require.NotEqual(t, a, b)
}

func TestStaticCredentials(t *testing.T) {
	creds, err := staticCredentials(" AKID:s3cr3t ")
	require.NoError(t, err)
	v, err := creds.Retrieve(context.Background())
	require.NoError(t, err)
	require.Equal(t, "AKID", v.AccessKeyID)
	require.Equal(t, "s3cr3t", v.SecretAccessKey)

	for _, bad := range []string{"", "AKID", ":secret", "AKID:"} {
		_, err := staticCredentials(bad)
		require.Error(t, err, bad)
	}
}

func TestOpen_MissingConfigurationDegrades(t *testing.T) {
	cfg := config.Config{Store: config.StoreConfig{Database: "bot", PartitionKey: "/userId"}}

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(time.Second) })

	require.False(t, s.IsAvailable())
	info := s.ConfigInfo()
	require.Contains(t, info.Error, "CONVSTORE_ENDPOINT")
	require.Contains(t, info.Error, "CONVSTORE_CONTAINER")
	require.Empty(t, s.History(context.Background(), "c1", "u1", 0))
}

func TestOpen_BadKeyDegrades(t *testing.T) {
	isolateAWSConfig(t)
	cfg := storeConfig("http://127.0.0.1:1")
	cfg.Store.Key = "no-separator"

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(time.Second) })

	require.False(t, s.IsAvailable())
	require.Contains(t, s.ConfigInfo().Error, "store key")
}

// dynamoServer answers DescribeTable with status and body.
func dynamoServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		if !strings.HasSuffix(r.Header.Get("X-Amz-Target"), ".DescribeTable") {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		w.Header().Set("Content-Type", "application/x-amz-json-1.0")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func isolateAWSConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_ENDPOINT_URL", "")
	t.Setenv("AWS_ENDPOINT_URL_DYNAMODB", "")
}

func storeConfig(endpoint string) config.Config {
	return config.Config{
		Store: config.StoreConfig{
			Endpoint:     endpoint,
			Key:          "AKID:secret",
			Database:     "bot",
			Container:    "conversations",
			PartitionKey: "/userId",
			Region:       "us-east-1",
		},
		TimeZone:       "America/Mexico_City",
		TTL:            config.DefaultTTL,
		KeepLast:       config.DefaultKeepLast,
		HistoryLimit:   config.DefaultHistoryLimit,
		RefreshWorkers: config.DefaultRefreshWorkers,
	}
}

func TestOpen_ProbeSucceeds(t *testing.T) {
	isolateAWSConfig(t)
	srv := dynamoServer(t, http.StatusOK, `{"Table":{
		"TableName":"bot.conversations","TableStatus":"ACTIVE",
		"KeySchema":[{"AttributeName":"userId","KeyType":"HASH"},{"AttributeName":"id","KeyType":"RANGE"}],
		"LocalSecondaryIndexes":[{"IndexName":"userId-timestamp-index",
			"KeySchema":[{"AttributeName":"userId","KeyType":"HASH"},{"AttributeName":"timestamp","KeyType":"RANGE"}]}]}}`)

	s, err := Open(context.Background(), storeConfig(srv.URL))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(time.Second) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.True(t, s.WaitReady(ctx))
	info := s.ConfigInfo()
	require.True(t, info.Available)
	require.True(t, info.Initialized)
	require.Empty(t, info.Error)
	require.Equal(t, "America/Mexico_City", s.loc.String())
}

func TestOpen_ProbeFailureClosesGate(t *testing.T) {
	isolateAWSConfig(t)
	srv := dynamoServer(t, http.StatusBadRequest,
		`{"__type":"com.amazonaws.dynamodb.v20120810#ResourceNotFoundException","message":"Requested resource not found"}`)

	s, err := Open(context.Background(), storeConfig(srv.URL))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(time.Second) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.False(t, s.WaitReady(ctx))
	info := s.ConfigInfo()
	require.True(t, info.Initialized)
	require.False(t, info.Available)
	require.Contains(t, info.Error, "ResourceNotFoundException")
}

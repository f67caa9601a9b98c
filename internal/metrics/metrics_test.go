package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveOp_CountsByLabels(t *testing.T) {
	m := New()
	m.ObserveOp("append", OutcomeOK)
	m.ObserveOp("append", OutcomeOK)
	m.ObserveOp("append", OutcomeDegraded)

	require.Equal(t, 2.0, testutil.ToFloat64(m.ops.WithLabelValues("append", OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("append", OutcomeDegraded)))
}

func TestSetAvailable(t *testing.T) {
	m := New()
	m.SetAvailable(true)
	require.Equal(t, 1.0, testutil.ToFloat64(m.available))
	m.SetAvailable(false)
	require.Equal(t, 0.0, testutil.ToFloat64(m.available))
}

func TestObserveCall_RecordsSample(t *testing.T) {
	m := New()
	m.ObserveCall("GetItem", time.Now().Add(-10*time.Millisecond))
	require.Equal(t, 1, testutil.CollectAndCount(m.calls))
}

func TestNilMetrics_IsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOp("append", OutcomeOK)
	m.ObserveCall("GetItem", time.Now())
	m.SetAvailable(true)
	m.RefreshDropped()
	require.Nil(t, m.Registry())
	require.NoError(t, m.Push(context.Background(), "http://localhost:9091", "job"))
}

func TestPush_EmptyURLIsNoop(t *testing.T) {
	require.NoError(t, New().Push(context.Background(), "", "job"))
}

func TestPush_SendsToGateway(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.RefreshDropped()
	require.NoError(t, m.Push(context.Background(), srv.URL, "retention"))
	require.Equal(t, "/metrics/job/retention", gotPath)
}

func TestPush_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New().Push(context.Background(), srv.URL, "retention")
	require.Error(t, err)
	require.Contains(t, err.Error(), "metrics: push")
}

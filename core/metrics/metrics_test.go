package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"asset-tracker/core/tracking"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Notify(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.Notify(ctx, tracking.Result{Outcome: tracking.OutcomeMoved, Attempts: 1})
	m.Notify(ctx, tracking.Result{Outcome: tracking.OutcomeMoved, Attempts: 2})
	m.Notify(ctx, tracking.Result{Outcome: tracking.OutcomeUnknownTag, Attempts: 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.results.WithLabelValues("moved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.results.WithLabelValues("unknown_tag")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.results.WithLabelValues("conflict")))
}

func TestMetrics_Lifecycle(t *testing.T) {
	m := New()
	m.Accepted()
	m.Accepted()
	m.Done(10 * time.Millisecond)
	m.Rejected("invalid")
	m.Reconnected("file")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.inflight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconnect.WithLabelValues("file")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Notify(context.Background(), tracking.Result{Outcome: tracking.OutcomeNoOp, Attempts: 1})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `asset_tracker_results_total{outcome="noop"} 1`)
	assert.Contains(t, string(body), "asset_tracker_commit_attempts_bucket")
}

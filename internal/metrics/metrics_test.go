package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pribylovaa/go-marketplace-monitor/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := New()
	m.Request("ok")
	m.Request("ok")
	m.Request("rate_limited")

	st := models.NewCrawlStats()
	st.RawItems, st.Extracted, st.Final = 10, 8, 3
	st.Drop(models.ReasonNoID)
	st.Drop(models.ReasonNoID)
	m.Crawl("cav", st)
	m.Cycle("ok", 2*time.Second)
	m.LedgerSize(42)
	m.SessionValid(true)

	require.InDelta(t, 2, testutil.ToFloat64(m.requests.WithLabelValues("ok")), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(m.requests.WithLabelValues("rate_limited")), 1e-9)
	require.InDelta(t, 10, testutil.ToFloat64(m.items.WithLabelValues("raw")), 1e-9)
	require.InDelta(t, 2, testutil.ToFloat64(m.drops.WithLabelValues("no_id")), 1e-9)
	require.InDelta(t, 3, testutil.ToFloat64(m.newListings.WithLabelValues("cav")), 1e-9)
	require.InDelta(t, 42, testutil.ToFloat64(m.ledgerSize), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(m.sessionValid), 1e-9)
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.Request("ok")
		m.Crawl("q", models.CrawlStats{})
		m.Cycle("ok", time.Second)
		m.LedgerSize(1)
		m.SessionValid(false)
	})
	require.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := New()
	m.Request("ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `marketplace_monitor_upstream_requests_total{outcome="ok"} 1`)
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestMiddleware_counts_errors(t *testing.T) {
	m := New()
	h := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal))
}

func TestMetrics_loads_and_cache(t *testing.T) {
	m := New()
	m.ObserveLoad("ok", 20*time.Millisecond)
	m.ObserveLoad("ok", 30*time.Millisecond)
	m.ObserveLoad("invalid_archive", time.Millisecond)
	m.IncArchiveCache(true)
	m.IncArchiveCache(false)
	m.IncArchiveCache(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.loadsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadsTotal.WithLabelValues("invalid_archive")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.archiveCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.archiveCacheTotal.WithLabelValues("miss")))
}

func TestHandler_refreshes_gauges(t *testing.T) {
	m := New()
	m.IncStateWrite("paused")

	called := false
	rec := httptest.NewRecorder()
	m.Handler(func() {
		called = true
		m.SetStateSubscribers(3)
	}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.True(t, called)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "dissector_state_stream_subscribers 3"), body)
	assert.True(t, strings.Contains(body, `dissector_state_writes_total{cell="paused"} 1`), body)
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dissector-viewer/internal/platform/logger"
	"dissector-viewer/internal/platform/metrics"
	"dissector-viewer/internal/state"
	"dissector-viewer/internal/tracks"

	"github.com/klauspost/compress/zip"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(tracks.DissectorEntry)
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(`{"a":1}`))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	archive := buf.Bytes()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/kult-0-100.zip" {
			http.NotFound(w, r)
			return
		}
		w.Write(archive)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServerRouter(t *testing.T, basePath string, health func(context.Context) error) (http.Handler, *state.AppState) {
	t.Helper()
	upstream := newUpstream(t)

	loc, err := tracks.NewLocator(upstream.URL + "/{track}.zip")
	if err != nil {
		t.Fatal(err)
	}
	log := logger.Discard()
	app := state.New()
	loader := tracks.NewLoader(loc, tracks.NewHTTPFetcher(upstream.Client(), 0), tracks.NewInMemoryCache())

	return newRouter(routerConfig{
		basePath: basePath,
		log:      log,
		metrics:  metrics.New(),
		state:    state.NewHandler(app, log),
		tracks:   tracks.NewHandler(loader, app, nil, log),
		health:   health,
	}), app
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_root_precedence(t *testing.T) {
	r, app := newTestServerRouter(t, "", nil)

	rec := get(r, "/state")
	if rec.Code != http.StatusOK {
		t.Fatalf("/state: expected 200, got %d", rec.Code)
	}
	var snap state.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Errorf("/state should serve the snapshot, got %s", rec.Body.String())
	}

	rec = get(r, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "dissector_requests_total") {
		t.Errorf("/metrics should serve prometheus output, got %d %s", rec.Code, rec.Body.String())
	}

	if rec = get(r, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("/healthz: expected 200, got %d", rec.Code)
	}

	rec = get(r, "/kult-0-100")
	if rec.Code != http.StatusOK {
		t.Fatalf("/kult-0-100: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if got := app.Analysis.Get(); got["a"] != 1.0 {
		t.Errorf("analysis not updated: %v", got)
	}

	if rec = get(r, "/tracks/kult-0-100"); rec.Code != http.StatusOK {
		t.Errorf("/tracks/kult-0-100: expected 200, got %d", rec.Code)
	}
	if rec = get(r, "/debug/archives"); rec.Code == http.StatusOK {
		t.Errorf("debug routes should not be mounted when archive debugging is off")
	}
}

func TestRouter_base_path(t *testing.T) {
	r, _ := newTestServerRouter(t, "/viewer", nil)

	if rec := get(r, "/viewer/kult-0-100"); rec.Code != http.StatusOK {
		t.Errorf("/viewer/kult-0-100: expected 200, got %d", rec.Code)
	}
	if rec := get(r, "/viewer/state"); rec.Code != http.StatusOK {
		t.Errorf("/viewer/state: expected 200, got %d", rec.Code)
	}
	if rec := get(r, "/kult-0-100"); rec.Code != http.StatusNotFound {
		t.Errorf("/kult-0-100 outside the base path: expected 404, got %d", rec.Code)
	}
	if rec := get(r, "/metrics"); rec.Code != http.StatusOK {
		t.Errorf("/metrics stays at the root: expected 200, got %d", rec.Code)
	}
}

func TestRouter_healthz_unhealthy(t *testing.T) {
	r, _ := newTestServerRouter(t, "", func(context.Context) error { return errors.New("redis down") })

	if rec := get(r, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

package tracks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	body := buildZip(t, map[string]string{DissectorEntry: `{"a":1}`})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.zip":
			w.Header().Set("Content-Type", "application/zip")
			w.Write(body)
		case "/broken.zip":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.Client(), 0)
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		got, err := f.Fetch(ctx, srv.URL+"/ok.zip")
		require.NoError(t, err)
		assert.Equal(t, body, got)
	})

	t.Run("not_found", func(t *testing.T) {
		_, err := f.Fetch(ctx, srv.URL+"/missing.zip")
		assert.ErrorIs(t, err, ErrUpstreamNotFound)
	})

	t.Run("server_error_is_not_success", func(t *testing.T) {
		_, err := f.Fetch(ctx, srv.URL+"/broken.zip")
		assert.ErrorIs(t, err, ErrUpstreamStatus)
	})
}

func TestHTTPFetcher_Fetch_too_large(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Streamed so no Content-Length is announced up front.
		w.(http.Flusher).Flush()
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.Client(), 16).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrArchiveTooLarge)
}

func TestHTTPFetcher_Fetch_transport_error(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(nil, 0).Fetch(context.Background(), url)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestHTTPFetcher_Fetch_canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPFetcher(srv.Client(), 0).Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrFetch)
}

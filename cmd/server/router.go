package main

import (
	"context"
	"log/slog"
	"net/http"

	"dissector-viewer/internal/platform/logger"
	"dissector-viewer/internal/platform/metrics"
	"dissector-viewer/internal/state"
	"dissector-viewer/internal/tracks"

	"github.com/go-chi/chi/v5"
)

// routerConfig carries what newRouter needs from main.
type routerConfig struct {
	basePath      string
	debugArchives bool
	log           *slog.Logger
	metrics       *metrics.Metrics
	state         *state.Handler
	tracks        *tracks.Handler
	// health is optional; nil means always healthy.
	health func(ctx context.Context) error
}

// newRouter builds the full route tree. /metrics and /healthz stay at the
// root; application routes are mounted under basePath.
func newRouter(cfg routerConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(cfg.log))
	r.Use(metrics.RequestMiddleware(cfg.metrics))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		cfg.metrics.Handler(func() { cfg.metrics.SetStateSubscribers(cfg.state.Subscribers()) }).ServeHTTP(w, r)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.health != nil {
			if err := cfg.health(r.Context()); err != nil {
				cfg.log.Warn("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	app := chi.NewRouter()
	app.Route("/state", func(r chi.Router) {
		r.Get("/", cfg.state.GetState)
		r.Get("/events", cfg.state.Events)
		r.Get("/{cell}", cfg.state.GetCell)
		r.Put("/{cell}", cfg.state.PutCell)
	})
	if cfg.debugArchives {
		app.Get("/debug/archives", cfg.tracks.ListArchives)
		app.Get("/debug/archives/{track}", cfg.tracks.GetArchive)
	}
	app.Get("/tracks/{track}", cfg.tracks.GetTrack)
	app.Get("/{track}", cfg.tracks.GetTrack)

	if cfg.basePath == "" {
		r.Mount("/", app)
	} else {
		r.Mount(cfg.basePath, app)
	}
	return r
}

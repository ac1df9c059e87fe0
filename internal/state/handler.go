package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	eventBuffer       = 64
	heartbeatInterval = 15 * time.Second
	maxCellBody       = 8 << 20
)

// Handler exposes the application state over HTTP.
type Handler struct {
	app         *AppState
	log         *slog.Logger
	subscribers atomic.Int64
	heartbeat   time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// NewHandler returns a Handler serving app.
func NewHandler(app *AppState, log *slog.Logger) *Handler {
	return &Handler{app: app, log: log, heartbeat: heartbeatInterval, done: make(chan struct{})}
}

// Close ends every open event stream and makes new ones return at once.
// http.Server.Shutdown does not cancel in-flight requests, so register it
// with RegisterOnShutdown.
func (h *Handler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Subscribers returns the number of connected event stream clients.
func (h *Handler) Subscribers() int {
	return int(h.subscribers.Load())
}

// GetState handles GET /state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Snapshot())
}

// GetCell handles GET /state/{cell}.
func (h *Handler) GetCell(w http.ResponseWriter, r *http.Request) {
	v, err := h.app.Get(chi.URLParam(r, "cell"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// PutCell handles PUT /state/{cell}. The body is the new JSON value.
func (h *Handler) PutCell(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "cell")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCellBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.app.SetCell(name, body); err != nil {
		switch {
		case errors.Is(err, ErrUnknownCell):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, ErrInvalidValue):
			h.log.Debug("invalid state value", slog.String("cell", name), slog.String("error", err.Error()))
			writeError(w, http.StatusBadRequest, err)
		default:
			h.log.Error("set state cell failed", slog.String("cell", name), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type event struct {
	name string
	data any
}

// Events handles GET /state/events as a Server-Sent Events stream: one
// "snapshot" event on connect, then one event per cell write. Writes that
// arrive while the client's buffer is full are dropped for that client.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	events := make(chan event, eventBuffer)
	unsubscribe := h.app.Watch(func(cell string, v any) {
		select {
		case events <- event{name: cell, data: v}:
		default:
			h.log.Warn("state event dropped", slog.String("cell", cell))
		}
	})
	defer unsubscribe()

	h.subscribers.Add(1)
	defer h.subscribers.Add(-1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, event{name: "snapshot", data: h.app.Snapshot()}); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		case ev := <-events:
			if err := writeEvent(w, ev); err != nil {
				h.log.Debug("state stream write failed", slog.String("error", err.Error()))
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, ev event) error {
	data, err := json.Marshal(ev.data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, data)
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

package tracks

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"dissector-viewer/internal/state"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the track page data and archive debugging endpoints.
type Handler struct {
	loader    *Loader
	app       *state.AppState
	inspector *Inspector
	log       *slog.Logger

	mu       sync.Mutex
	inFlight int
}

// NewHandler returns a Handler. inspector may be nil when archive
// debugging is off.
func NewHandler(loader *Loader, app *state.AppState, inspector *Inspector, log *slog.Logger) *Handler {
	return &Handler{loader: loader, app: app, inspector: inspector, log: log}
}

// GetTrack handles GET /{track} and GET /tracks/{track}. It returns the
// track's dissector document as the page's initial data and mirrors it into
// the analysis cell. Loading stays raised while any page load is running.
func (h *Handler) GetTrack(w http.ResponseWriter, r *http.Request) {
	track := chi.URLParam(r, "track")

	h.beginLoad()
	res := h.loader.Load(r.Context(), track)
	if res.OK() {
		h.app.Analysis.Set(res.Document)
	}
	h.endLoad()

	if !res.OK() {
		status := statusFor(res.Err)
		if status >= http.StatusInternalServerError {
			h.log.Error("track page data failed",
				slog.String("track", track),
				slog.Int("status", status),
				slog.String("error", res.Err.Error()))
		}
		writeError(w, status, res.Err)
		return
	}

	writeJSON(w, http.StatusOK, res.Document)
}

// ListArchives handles GET /debug/archives.
func (h *Handler) ListArchives(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.inspector.List())
}

// GetArchive handles GET /debug/archives/{track}.
func (h *Handler) GetArchive(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	rec, ok := h.inspector.Get(TrackID(chi.URLParam(r, "track")))
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// beginLoad and endLoad hold mu across the cell write so a finishing load
// cannot clear Loading after another one has raised it.
func (h *Handler) beginLoad() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inFlight++
	h.app.Loading.Set(true)
}

func (h *Handler) endLoad() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inFlight--
	if h.inFlight == 0 {
		h.app.Loading.Set(false)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidTrack):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstreamNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

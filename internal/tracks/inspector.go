package tracks

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Inspection is the archive listing captured for a track's latest load.
type Inspection struct {
	LoadID   uuid.UUID   `json:"load_id"`
	Track    TrackID     `json:"track"`
	URL      string      `json:"url"`
	Entries  []EntryInfo `json:"entries"`
	LoadedAt time.Time   `json:"loaded_at"`
}

// Inspector keeps the latest archive listing per track for debugging.
// It is only wired in when archive debugging is switched on.
type Inspector struct {
	mu      sync.RWMutex
	records map[TrackID]Inspection
	log     *slog.Logger
}

// NewInspector returns an empty Inspector.
func NewInspector(log *slog.Logger) *Inspector {
	return &Inspector{
		records: make(map[TrackID]Inspection),
		log:     log,
	}
}

// Record stores entries as the latest listing for track and logs it.
func (i *Inspector) Record(track TrackID, url string, entries []EntryInfo) Inspection {
	rec := Inspection{
		LoadID:   uuid.New(),
		Track:    track,
		URL:      url,
		Entries:  entries,
		LoadedAt: time.Now().UTC(),
	}

	i.mu.Lock()
	i.records[track] = rec
	i.mu.Unlock()

	names := make([]string, len(entries))
	for n, e := range entries {
		names[n] = e.Name
	}
	i.log.Debug("archive opened",
		slog.String("load_id", rec.LoadID.String()),
		slog.String("track", string(track)),
		slog.Any("files", names))
	return rec
}

// Get returns the latest listing for track.
func (i *Inspector) Get(track TrackID) (Inspection, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	rec, ok := i.records[track]
	return rec, ok
}

// List returns every stored listing ordered by track id.
func (i *Inspector) List() []Inspection {
	i.mu.RLock()
	out := make([]Inspection, 0, len(i.records))
	for _, rec := range i.records {
		out = append(out, rec)
	}
	i.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool { return out[a].Track < out[b].Track })
	return out
}

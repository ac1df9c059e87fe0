// Package state holds the viewer's playback and UI state as a set of
// observable cells grouped in an AppState that is passed to whoever needs it.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Cell names as they appear on the wire.
const (
	CellDuration  = "duration"
	CellPaused    = "paused"
	CellMetronome = "metronome"
	CellMutes     = "mutes"
	CellLoading   = "loading"
	CellEditURL   = "edit_url"
	CellAnalysis  = "analysis"
)

// TrackCount is the number of per-track mute flags a fresh state starts with.
const TrackCount = 4

var (
	// ErrUnknownCell is returned when a cell name does not exist.
	ErrUnknownCell = errors.New("unknown state cell")

	// ErrInvalidValue is returned when a JSON value cannot be decoded into
	// the cell's type.
	ErrInvalidValue = errors.New("invalid state value")
)

// AppState groups every cell. Each AppState is independent; construct one
// with New and hand it to the components that read or write it.
type AppState struct {
	Duration  *Cell[float64]
	Paused    *Cell[bool]
	Metronome *Cell[bool]
	Mutes     *Cell[[]bool]
	Loading   *Cell[bool]
	EditURL   *Cell[string]
	Analysis  *Cell[map[string]any]

	cells []anyCell
}

// Snapshot is a point-in-time JSON view of all cells.
type Snapshot struct {
	Duration  float64        `json:"duration"`
	Paused    bool           `json:"paused"`
	Metronome bool           `json:"metronome"`
	Mutes     []bool         `json:"mutes"`
	Loading   bool           `json:"loading"`
	EditURL   string         `json:"edit_url"`
	Analysis  map[string]any `json:"analysis"`
}

// New returns state with the initial values: nothing loaded yet, paused,
// metronome off, all tracks unmuted.
func New() *AppState {
	s := &AppState{
		Duration:  NewCell[float64](CellDuration, 0),
		Paused:    NewCell(CellPaused, true),
		Metronome: NewCell(CellMetronome, false),
		Mutes:     NewCell(CellMutes, make([]bool, TrackCount)),
		Loading:   NewCell(CellLoading, true),
		EditURL:   NewCell(CellEditURL, ""),
		Analysis:  NewCell(CellAnalysis, map[string]any{}),
	}
	s.cells = []anyCell{s.Duration, s.Paused, s.Metronome, s.Mutes, s.Loading, s.EditURL, s.Analysis}
	return s
}

// Names lists the cell names in a stable order.
func (s *AppState) Names() []string {
	names := make([]string, len(s.cells))
	for i, c := range s.cells {
		names[i] = c.Name()
	}
	return names
}

// Snapshot reads every cell. Cells are read one at a time, so a snapshot
// taken during concurrent writes may mix old and new values.
func (s *AppState) Snapshot() Snapshot {
	return Snapshot{
		Duration:  s.Duration.Get(),
		Paused:    s.Paused.Get(),
		Metronome: s.Metronome.Get(),
		Mutes:     s.Mutes.Get(),
		Loading:   s.Loading.Get(),
		EditURL:   s.EditURL.Get(),
		Analysis:  s.Analysis.Get(),
	}
}

// Get returns the current value of the named cell.
func (s *AppState) Get(name string) (any, error) {
	c, err := s.cell(name)
	if err != nil {
		return nil, err
	}
	return c.getAny(), nil
}

// SetCell decodes raw into the named cell's type and writes it. Only the
// JSON type is checked; ranges and lengths are not.
func (s *AppState) SetCell(name string, raw json.RawMessage) error {
	c, err := s.cell(name)
	if err != nil {
		return err
	}
	return c.setJSON(raw)
}

// Watch subscribes fn to every cell. fn receives the cell name and the
// written value.
func (s *AppState) Watch(fn func(cell string, value any)) (unsubscribe func()) {
	unsubs := make([]func(), 0, len(s.cells))
	for _, c := range s.cells {
		name := c.Name()
		unsubs = append(unsubs, c.subscribeAny(func(v any) { fn(name, v) }))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (s *AppState) cell(name string) (anyCell, error) {
	for _, c := range s.cells {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCell, name)
}

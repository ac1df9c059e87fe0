package tracks

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// TrackID identifies a track, e.g. "kult-0-100". It is the {track} path
// segment of the page route and the key used to locate the track's archive.
type TrackID string

const maxTrackIDLen = 128

var trackIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Validate reports whether the id is safe to substitute into an archive URL.
func (id TrackID) Validate() error {
	if len(id) == 0 || len(id) > maxTrackIDLen || !trackIDPattern.MatchString(string(id)) {
		return fmt.Errorf("%w: %q", ErrInvalidTrack, string(id))
	}
	return nil
}

// DissectorEntry is the archive member holding the analysis document.
const DissectorEntry = "dissector.json"

// Document is a parsed dissector document. Its schema belongs to the
// analysis tool that produced it and is passed through untouched.
type Document = map[string]any

// Result is the outcome of one load. Exactly one of Document and Err is set.
type Result struct {
	Track    TrackID
	Document Document
	Err      error
}

// OK reports whether the load succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// EntryInfo describes one archive member.
type EntryInfo struct {
	Name           string    `json:"name"`
	Size           uint64    `json:"size"`
	CompressedSize uint64    `json:"compressed_size"`
	Modified       time.Time `json:"modified"`
}

var (
	// ErrInvalidTrack is returned for track ids that cannot name an archive.
	ErrInvalidTrack = errors.New("invalid track id")

	// ErrInvalidTemplate is returned when an archive URL template has no
	// {track} placeholder or is not an absolute http(s) URL.
	ErrInvalidTemplate = errors.New("invalid archive url template")

	// ErrFetch wraps transport failures talking to the archive host.
	ErrFetch = errors.New("fetch archive")

	// ErrUpstreamNotFound is returned when the archive host answers 404.
	ErrUpstreamNotFound = errors.New("archive not found upstream")

	// ErrUpstreamStatus is returned for any other non-2xx answer.
	ErrUpstreamStatus = errors.New("unexpected upstream status")

	// ErrArchiveTooLarge is returned when the body exceeds the fetch limit.
	ErrArchiveTooLarge = errors.New("archive too large")

	// ErrInvalidArchive is returned when the bytes are not a zip archive.
	ErrInvalidArchive = errors.New("invalid archive")

	// ErrEntryNotFound is returned when the archive lacks the requested member.
	ErrEntryNotFound = errors.New("archive entry not found")

	// ErrInvalidDocument is returned when the entry is not a JSON object.
	ErrInvalidDocument = errors.New("invalid dissector document")
)

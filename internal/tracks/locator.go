package tracks

import (
	"fmt"
	"net/url"
	"strings"
)

// TrackPlaceholder is replaced by the track id in archive URL templates.
const TrackPlaceholder = "{track}"

// DefaultURLTemplate points at the hosted demo's cached examples. Track
// "kult-0-100" resolves to the archive the viewer was first built against.
const DefaultURLTemplate = "https://vpavlenko-all-in-one.hf.space/file=/home/user/app/gradio_cached_examples/10/Compressed%20Files/c617188cf976a125ce9918dfb255523862a09443/{track}.zip"

// Locator maps track ids to archive URLs.
type Locator struct {
	template string
}

// NewLocator validates template and returns a Locator for it.
func NewLocator(template string) (*Locator, error) {
	if !strings.Contains(template, TrackPlaceholder) {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidTemplate, TrackPlaceholder)
	}
	u, err := url.Parse(strings.ReplaceAll(template, TrackPlaceholder, "track"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) url", ErrInvalidTemplate, template)
	}
	return &Locator{template: template}, nil
}

// URL returns the archive location for track.
func (l *Locator) URL(track TrackID) (string, error) {
	if err := track.Validate(); err != nil {
		return "", err
	}
	return strings.ReplaceAll(l.template, TrackPlaceholder, url.PathEscape(string(track))), nil
}

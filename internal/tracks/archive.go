package tracks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/zip"
)

// maxEntryBytes bounds decompression of a single member.
const maxEntryBytes = 256 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Archive is an opened in-memory zip archive.
type Archive struct {
	r *zip.Reader
}

// OpenArchive reads the zip directory from data.
func OpenArchive(data []byte) (*Archive, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	return &Archive{r: r}, nil
}

// Entries lists the archive's files sorted by name. Directories are skipped.
func (a *Archive) Entries() []EntryInfo {
	out := make([]EntryInfo, 0, len(a.r.File))
	for _, f := range a.r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		out = append(out, EntryInfo{
			Name:           f.Name,
			Size:           f.UncompressedSize64,
			CompressedSize: f.CompressedSize64,
			Modified:       f.Modified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ReadEntry returns the decompressed contents of the member called name.
// The name must match exactly, directory prefix included.
func (a *Archive) ReadEntry(name string) ([]byte, error) {
	for _, f := range a.r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrInvalidArchive, name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes+1))
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidArchive, name, err)
		}
		if len(data) > maxEntryBytes {
			return nil, fmt.Errorf("%w: %s over %d bytes", ErrArchiveTooLarge, name, maxEntryBytes)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
}

// ParseDocument decodes a dissector document. The top level must be a JSON
// object; a leading UTF-8 byte order mark is ignored.
func ParseDocument(data []byte) (Document, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level is %T, want object", ErrInvalidDocument, v)
	}
	return doc, nil
}

// Package metadata implements the MetadataService adapter by reading the
// embedded ID3/tag data from a downloaded audio file.
package metadata

import (
	"context"
	"fmt"
	"os"

	"github.com/dhowden/tag"

	"trackrequestd/internal/model"
	"trackrequestd/internal/trackrequest"
)

// Reader is a MetadataService backed by local tag reads; it holds no state
// of its own.
type Reader struct{}

var _ trackrequest.MetadataService = (*Reader)(nil)

// New returns a ready-to-use Reader.
func New() *Reader {
	return &Reader{}
}

// GetAudioMetadata opens path and reads its embedded tags. A file with no
// readable tags (a raw WAV, a stripped MP3) is reported as nil, not an
// error: the caller treats that as a metadata mismatch rather than an
// adapter failure.
func (r *Reader) GetAudioMetadata(ctx context.Context, path string) (*model.AudioMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("metadata: open %s: %w", path, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, nil
	}

	return &model.AudioMetadata{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
	}, nil
}

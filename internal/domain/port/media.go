package port

import (
	"context"

	"github.com/subatic/transcode-worker/internal/domain/entity"
	"github.com/subatic/transcode-worker/internal/domain/hls"
)

// Prober validates a downloaded file and extracts its media characteristics.
type Prober interface {
	Probe(ctx context.Context, path string) (entity.MediaProbe, error)
}

// Encoder produces one segmented rendition per ladder rung under outDir.
type Encoder interface {
	EncodeLadder(ctx context.Context, sourcePath string, outDir string, ladder hls.Ladder) error
}

// PreviewGenerator builds the scrubbing preview package (sprite, cue sheet,
// animations, poster) from a rendition playlist.
type PreviewGenerator interface {
	Generate(ctx context.Context, playlistPath string, outDir string, duration float64) error
}

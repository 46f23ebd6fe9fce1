// Package ffmpeg drives the external transcoder. The pipeline treats encode,
// probe and frame extraction as black-box invocations; everything here is
// argument plumbing around exec.CommandContext.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/subatic/transcode-worker/internal/domain/hls"
)

// Encoder produces segmented HLS renditions. Rungs are encoded chained: the
// highest rung from the source file, each lower rung from the previous
// rung's output, trading redundant decode work for compounding (acceptable)
// quality loss.
type Encoder struct {
	binary         string
	segmentSeconds int
	logger         *zap.Logger
}

func NewEncoder(binary string, segmentSeconds int, logger *zap.Logger) *Encoder {
	return &Encoder{binary: binary, segmentSeconds: segmentSeconds, logger: logger}
}

func (e *Encoder) EncodeLadder(ctx context.Context, sourcePath string, outDir string, ladder hls.Ladder) error {
	input := sourcePath
	for i, spec := range ladder {
		rungDir := filepath.Join(outDir, spec.Name)
		if err := os.MkdirAll(rungDir, 0o755); err != nil {
			return fmt.Errorf("create rung dir %s: %w", rungDir, err)
		}

		start := time.Now()
		if err := e.encodeRendition(ctx, input, rungDir, spec, i > 0); err != nil {
			return err
		}
		e.logger.Info("rendition encoded",
			zap.String("rung", spec.Name),
			zap.String("resolution", spec.Resolution()),
			zap.Int("video_kbps", spec.VideoKbps),
			zap.Duration("took", time.Since(start)),
		)

		input = filepath.Join(rungDir, "stream.m3u8")
	}
	return nil
}

func (e *Encoder) encodeRendition(ctx context.Context, input, rungDir string, spec hls.RenditionSpec, chained bool) error {
	playlist := filepath.Join(rungDir, "stream.m3u8")

	cmd := exec.CommandContext(ctx, e.binary, renditionArgs(input, rungDir, spec, chained, e.segmentSeconds)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("encode %s: %w: %s", spec.Name, err, tail(output))
	}

	if _, err := os.Stat(playlist); err != nil {
		return fmt.Errorf("encode %s: playlist missing after encode: %w", spec.Name, err)
	}
	return nil
}

// renditionArgs builds the transcoder invocation for one rung. Segment names
// are zero-padded so the playlist can reference them by generated pattern.
func renditionArgs(input, rungDir string, spec hls.RenditionSpec, chained bool, segmentSeconds int) []string {
	scale := fmt.Sprintf("scale=%d:%d", spec.Width, spec.Height)
	if chained {
		scale += ":flags=lanczos"
	}

	return []string{
		"-i", input,
		"-vf", scale,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-b:v", fmt.Sprintf("%dk", spec.VideoKbps),
		"-maxrate", fmt.Sprintf("%dk", spec.VideoKbps),
		"-bufsize", fmt.Sprintf("%dk", spec.VideoKbps*2),
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", spec.AudioKbps),
		"-ar", "48000",
		"-f", "hls",
		"-hls_time", fmt.Sprintf("%d", segmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(rungDir, "%03d.ts"),
		"-y", filepath.Join(rungDir, "stream.m3u8"),
	}
}

// tail keeps the last part of tool output for error messages; ffmpeg logs
// the actual failure at the end.
func tail(output []byte) string {
	const max = 512
	if len(output) > max {
		output = output[len(output)-max:]
	}
	return string(output)
}

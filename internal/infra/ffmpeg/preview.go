package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/subatic/transcode-worker/internal/domain/hls"
)

// PreviewGenerator builds the scrubbing preview package from the highest
// rendition's playlist: a tiled sprite, its WebVTT cue sheet, a short and a
// long animation, and a poster still. The intermediate frames are never
// published.
type PreviewGenerator struct {
	binary string
	logger *zap.Logger
}

func NewPreviewGenerator(binary string, logger *zap.Logger) *PreviewGenerator {
	return &PreviewGenerator{binary: binary, logger: logger}
}

func (g *PreviewGenerator) Generate(ctx context.Context, playlistPath string, outDir string, duration float64) error {
	if duration <= 0 {
		return fmt.Errorf("non-positive duration %.3f", duration)
	}

	framePattern := filepath.Join(outDir, "frame%03d.jpg")
	defer g.removeFrames(outDir)

	// One frame every duration/100 seconds, at tile resolution.
	fps := float64(hls.SpriteFrames) / duration
	if err := g.run(ctx, "extract frames",
		"-i", playlistPath,
		"-vf", fmt.Sprintf("fps=%f,scale=%d:%d", fps, hls.TileWidth, hls.TileHeight),
		"-y", framePattern,
	); err != nil {
		return err
	}

	frames, err := filepath.Glob(filepath.Join(outDir, "frame*.jpg"))
	if err != nil || len(frames) == 0 {
		return fmt.Errorf("no preview frames extracted: %v", err)
	}

	if err := g.run(ctx, "compose sprite",
		"-framerate", "10",
		"-i", framePattern,
		"-vf", fmt.Sprintf("tile=%dx%d", hls.SpriteColumns, hls.SpriteColumns),
		"-frames:v", "1",
		"-y", filepath.Join(outDir, hls.SpriteImageName),
	); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(outDir, "sprite.vtt"), hls.RenderSpriteCues(duration), 0o644); err != nil {
		return fmt.Errorf("write cue sheet: %w", err)
	}

	if err := g.run(ctx, "compose long animation",
		"-framerate", "10",
		"-i", framePattern,
		"-y", filepath.Join(outDir, "long.gif"),
	); err != nil {
		return err
	}

	// Every 10th frame for the short loop.
	if err := g.run(ctx, "compose short animation",
		"-framerate", "10",
		"-i", framePattern,
		"-vf", "select=not(mod(n\\,10))",
		"-fps_mode", "vfr",
		"-y", filepath.Join(outDir, "short.gif"),
	); err != nil {
		return err
	}

	if err := g.run(ctx, "extract poster",
		"-i", playlistPath,
		"-ss", fmt.Sprintf("%f", posterOffset(duration)),
		"-frames:v", "1",
		"-q:v", "2",
		"-y", filepath.Join(outDir, "poster.jpg"),
	); err != nil {
		return err
	}

	g.logger.Info("preview package generated", zap.Int("frames", len(frames)))
	return nil
}

func (g *PreviewGenerator) run(ctx context.Context, step string, args ...string) error {
	cmd := exec.CommandContext(ctx, g.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", step, err, tail(output))
	}
	return nil
}

func (g *PreviewGenerator) removeFrames(outDir string) {
	frames, err := filepath.Glob(filepath.Join(outDir, "frame*.jpg"))
	if err != nil {
		return
	}
	for _, f := range frames {
		if err := os.Remove(f); err != nil {
			g.logger.Warn("failed to remove preview frame", zap.String("path", f), zap.Error(err))
		}
	}
}

// posterOffset picks a still from early in the video without running past
// the end of very short sources.
func posterOffset(duration float64) float64 {
	if duration < 2 {
		return 0
	}
	return 1
}

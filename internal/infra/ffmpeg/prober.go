package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"go.uber.org/zap"

	"github.com/subatic/transcode-worker/internal/domain/entity"
)

// Prober inspects a downloaded file with ffprobe and rejects anything that
// is not a playable video before expensive work begins.
type Prober struct {
	binary string
	logger *zap.Logger
}

func NewProber(binary string, logger *zap.Logger) *Prober {
	return &Prober{binary: binary, logger: logger}
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
	BitRate   string `json:"bit_rate"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
	BitRate  string `json:"bit_rate"`
}

func (p *Prober) Probe(ctx context.Context, path string) (entity.MediaProbe, error) {
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-of", "json",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// ffprobe ran but could not read the file as media.
			return entity.MediaProbe{}, entity.Fail(entity.FailureInvalidSource, entity.StateValidating,
				fmt.Errorf("ffprobe: %w: %s", err, string(exitErr.Stderr)))
		}
		return entity.MediaProbe{}, entity.Fail(entity.FailureSourceUnavailable, entity.StateValidating,
			fmt.Errorf("run ffprobe: %w", err))
	}

	probe, err := parseProbe(output)
	if err != nil {
		return entity.MediaProbe{}, entity.Fail(entity.FailureInvalidSource, entity.StateValidating, err)
	}

	p.logger.Debug("probed source",
		zap.Float64("duration", probe.Duration),
		zap.Int("width", probe.Width),
		zap.Int("height", probe.Height),
		zap.Int("bitrate_kbps", probe.BitrateKbps),
	)
	return probe, nil
}

func parseProbe(raw []byte) (entity.MediaProbe, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return entity.MediaProbe{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var video *probeStream
	for i := range out.Streams {
		if out.Streams[i].CodecType == "video" {
			video = &out.Streams[i]
			break
		}
	}
	if video == nil {
		return entity.MediaProbe{}, errors.New("no video stream found")
	}

	duration := parseFloat(video.Duration)
	if duration <= 0 {
		duration = parseFloat(out.Format.Duration)
	}

	probe := entity.MediaProbe{
		Duration:    duration,
		Width:       video.Width,
		Height:      video.Height,
		BitrateKbps: estimateBitrate(video, out.Format, duration),
	}
	if !probe.Valid() {
		return entity.MediaProbe{}, fmt.Errorf("unusable media: %dx%d, %.3fs", probe.Width, probe.Height, probe.Duration)
	}
	return probe, nil
}

// estimateBitrate prefers the video stream's own rate, then the container
// rate, then size over duration.
func estimateBitrate(video *probeStream, format probeFormat, duration float64) int {
	if kbps := int(parseFloat(video.BitRate)) / 1000; kbps > 0 {
		return kbps
	}
	if kbps := int(parseFloat(format.BitRate)) / 1000; kbps > 0 {
		return kbps
	}
	if size := parseFloat(format.Size); size > 0 && duration > 0 {
		return int(size * 8 / duration / 1000)
	}
	return 0
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

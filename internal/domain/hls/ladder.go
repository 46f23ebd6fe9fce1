// Package hls holds the pure adaptive-streaming domain logic: rendition
// ladder planning and playlist/cue-sheet rendering. Nothing here touches the
// filesystem or external tools.
package hls

import (
	"fmt"
	"math"

	"github.com/subatic/transcode-worker/internal/domain/entity"
)

// RenditionSpec is one rung of the ladder: the target encode parameters for a
// single quality level.
type RenditionSpec struct {
	Name      string
	Width     int
	Height    int
	VideoKbps int
	AudioKbps int
}

// Resolution renders the spec as "WxH" for scale filters and manifests.
func (r RenditionSpec) Resolution() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Bandwidth is the combined stream bandwidth in bits per second.
func (r RenditionSpec) Bandwidth() int {
	return (r.VideoKbps + r.AudioKbps) * 1000
}

// PlaylistPath is the rung playlist location relative to the output root.
func (r RenditionSpec) PlaylistPath() string {
	return r.Name + "/stream.m3u8"
}

// Ladder is an ordered rendition set, highest rung first.
type Ladder []RenditionSpec

// minVideoKbps is the floor below which a rendition is not worth producing.
const minVideoKbps = 500

type rung struct {
	name        string
	width       int
	height      int
	defaultKbps int
	audioKbps   int
}

// rungTable is the fixed descending ladder. Audio rates are a deliberately
// simple per-rung table, not computed.
var rungTable = []rung{
	{"4k", 3840, 2160, 16000, 96},
	{"1440p", 2560, 1440, 8000, 96},
	{"1080p", 1920, 1080, 5000, 128},
	{"720p", 1280, 720, 2500, 128},
	{"480p", 854, 480, 1250, 96},
}

// Plan maps a source probe to its rendition ladder. A source below every rung
// still yields one best-effort rung at the source's own dimensions rather
// than an empty ladder.
func Plan(probe entity.MediaProbe) (Ladder, error) {
	if !probe.Valid() {
		return nil, entity.Fail(entity.FailureInvalidSource, entity.StatePlanning,
			fmt.Errorf("unusable source: %dx%d, %.3fs", probe.Width, probe.Height, probe.Duration))
	}

	var ladder Ladder
	for _, r := range rungTable {
		if probe.Width < r.width && probe.Height < r.height {
			continue
		}
		w, h := fitResolution(probe.Width, probe.Height, r.width, r.height)
		ladder = append(ladder, RenditionSpec{
			Name:      r.name,
			Width:     w,
			Height:    h,
			VideoKbps: videoBitrate(probe, w, h, r.defaultKbps),
			AudioKbps: r.audioKbps,
		})
	}

	if len(ladder) == 0 {
		lowest := rungTable[len(rungTable)-1]
		w, h := evenDown(probe.Width), evenDown(probe.Height)
		ladder = append(ladder, RenditionSpec{
			Name:      lowest.name,
			Width:     w,
			Height:    h,
			VideoKbps: videoBitrate(probe, w, h, lowest.defaultKbps),
			AudioKbps: lowest.audioKbps,
		})
	}
	return ladder, nil
}

// fitResolution derives the rung's target dimensions preserving the source
// aspect ratio: landscape fixes width, portrait and square fix height. If the
// derived box would exceed the source in either dimension, the source's own
// dimensions are used instead so the ladder never upscales.
func fitResolution(srcW, srcH, targetW, targetH int) (int, int) {
	aspect := float64(srcW) / float64(srcH)

	var w, h int
	if srcW > srcH {
		w = targetW
		h = int(math.Round(float64(targetW) / aspect))
	} else {
		h = targetH
		w = int(math.Round(float64(targetH) * aspect))
	}

	if w > srcW || h > srcH {
		w, h = srcW, srcH
	}
	return evenDown(w), evenDown(h)
}

// evenDown truncates odd dimensions down one unit (codec constraint).
func evenDown(v int) int {
	if v%2 != 0 {
		return v - 1
	}
	return v
}

// videoBitrate scales the source bitrate by the target/source area ratio,
// floored at minVideoKbps and capped at the source bitrate. An unknown source
// bitrate falls back to the rung default.
func videoBitrate(probe entity.MediaProbe, w, h, defaultKbps int) int {
	if probe.BitrateKbps <= 0 {
		return defaultKbps
	}
	ratio := float64(w*h) / float64(probe.Width*probe.Height)
	kbps := int(math.Floor(float64(probe.BitrateKbps) * ratio))
	if kbps < minVideoKbps {
		kbps = minVideoKbps
	}
	if kbps > probe.BitrateKbps {
		kbps = probe.BitrateKbps
	}
	return kbps
}

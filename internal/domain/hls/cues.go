package hls

import (
	"bytes"
	"fmt"
	"math"
)

// Sprite format constants. The scrubbing preview is always 100 samples laid
// out row-major on a 10x10 grid of 384x216 tiles.
const (
	SpriteFrames  = 100
	SpriteColumns = 10
	TileWidth     = 384
	TileHeight    = 216
)

// SpriteImageName is the sprite file the cue sheet references.
const SpriteImageName = "sprite.jpg"

// RenderSpriteCues produces the WebVTT cue sheet mapping playback time
// ranges to sprite tile rectangles for a video of the given duration.
func RenderSpriteCues(duration float64) []byte {
	interval := duration / SpriteFrames

	var buf bytes.Buffer
	buf.WriteString("WEBVTT\n\n")
	for i := 0; i < SpriteFrames; i++ {
		start := float64(i) * interval
		end := float64(i+1) * interval
		x := (i % SpriteColumns) * TileWidth
		y := (i / SpriteColumns) * TileHeight

		fmt.Fprintf(&buf, "%s --> %s\n", FormatTimestamp(start), FormatTimestamp(end))
		fmt.Fprintf(&buf, "%s#xywh=%d,%d,%d,%d\n\n", SpriteImageName, x, y, TileWidth, TileHeight)
	}
	return buf.Bytes()
}

// FormatTimestamp renders seconds as HH:MM:SS, rounded to the nearest second.
func FormatTimestamp(seconds float64) string {
	total := int(math.Round(seconds))
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

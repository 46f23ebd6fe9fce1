package hls

import (
	"bytes"
	"fmt"
)

// RenderMasterPlaylist produces the master manifest listing every rung in
// ladder order. Deterministic for a given ladder.
func RenderMasterPlaylist(ladder Ladder) []byte {
	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n")
	for _, spec := range ladder {
		fmt.Fprintf(&buf, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s\n", spec.Bandwidth(), spec.Resolution())
		buf.WriteString(spec.PlaylistPath() + "\n")
	}
	return buf.Bytes()
}

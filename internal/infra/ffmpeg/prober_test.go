package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbe(t *testing.T) {
	raw := []byte(`{
		"streams": [
			{"codec_type": "audio", "bit_rate": "128000"},
			{"codec_type": "video", "width": 1920, "height": 1080, "duration": "120.5", "bit_rate": "6000000"}
		],
		"format": {"duration": "120.5", "size": "90000000", "bit_rate": "6128000"}
	}`)

	probe, err := parseProbe(raw)
	require.NoError(t, err)
	assert.Equal(t, 1920, probe.Width)
	assert.Equal(t, 1080, probe.Height)
	assert.InDelta(t, 120.5, probe.Duration, 0.001)
	assert.Equal(t, 6000, probe.BitrateKbps)
}

func TestParseProbeDurationFromFormat(t *testing.T) {
	raw := []byte(`{
		"streams": [{"codec_type": "video", "width": 1280, "height": 720}],
		"format": {"duration": "60.0", "bit_rate": "2500000"}
	}`)

	probe, err := parseProbe(raw)
	require.NoError(t, err)
	assert.InDelta(t, 60.0, probe.Duration, 0.001)
	assert.Equal(t, 2500, probe.BitrateKbps)
}

func TestParseProbeBitrateFromSize(t *testing.T) {
	// Neither the stream nor the container reports a rate; fall back to
	// size over duration.
	raw := []byte(`{
		"streams": [{"codec_type": "video", "width": 1280, "height": 720, "duration": "100"}],
		"format": {"size": "25000000"}
	}`)

	probe, err := parseProbe(raw)
	require.NoError(t, err)
	assert.Equal(t, 2000, probe.BitrateKbps)
}

func TestParseProbeRejectsBadMedia(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"no video stream", `{"streams":[{"codec_type":"audio"}],"format":{"duration":"60"}}`},
		{"zero duration", `{"streams":[{"codec_type":"video","width":1280,"height":720}],"format":{}}`},
		{"zero dimensions", `{"streams":[{"codec_type":"video","duration":"60"}],"format":{"duration":"60"}}`},
		{"not json", `ffprobe exploded`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseProbe([]byte(tc.raw))
			assert.Error(t, err)
		})
	}
}

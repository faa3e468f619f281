package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFFmpegArgs(t *testing.T) {
	d := &FFmpegDevice{Format: "pulse", Input: "default"}
	assert.Equal(t, []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "pulse", "-i", "default",
		"-ac", "1", "-c:a", "libopus", "-f", "webm", "pipe:1",
	}, d.args())
}

func TestFFmpegMissingBinary(t *testing.T) {
	d := &FFmpegDevice{Binary: "voxnote-no-such-ffmpeg", Format: "pulse", Input: "default"}
	stream, err := d.Open(context.Background())
	require.Error(t, err)
	assert.Nil(t, stream)
	assert.Contains(t, err.Error(), "start voxnote-no-such-ffmpeg")
}

func TestDefaultFFmpegDevice(t *testing.T) {
	d := DefaultFFmpegDevice()
	assert.Equal(t, "ffmpeg", d.Binary)
	assert.NotEmpty(t, d.Format)
	assert.NotEmpty(t, d.Input)
}

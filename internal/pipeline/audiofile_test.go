package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAudioFile(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		ok          bool
	}{
		{"clip.webm", "audio/webm;codecs=opus", true},
		{"clip.bin", "audio/mpeg", true},
		{"voice.m4a", "application/octet-stream", true},
		{"VOICE.MP3", "", true},
		{"notes.txt", "text/plain", false},
		{"video.mp4", "video/mp4", false},
		{"noext", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAudioFile(tt.name, tt.contentType)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidAudioFile)
			}
		})
	}
}

func TestGuard(t *testing.T) {
	g := NewGuard()
	release, ok := g.Acquire("u1")
	assert.True(t, ok)

	_, ok = g.Acquire("u1")
	assert.False(t, ok)

	_, ok = g.Acquire("u2")
	assert.True(t, ok)

	release()
	release()
	_, ok = g.Acquire("u1")
	assert.True(t, ok)
}

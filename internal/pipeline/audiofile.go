package pipeline

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrInvalidAudioFile is returned for uploads outside the audio allow-list.
var ErrInvalidAudioFile = errors.New("Please upload a valid audio file (webm, mp3, wav, ogg, m4a)")

var allowedMIMETypes = map[string]bool{
	"audio/webm": true,
	"audio/mp3":  true,
	"audio/wav":  true,
	"audio/mpeg": true,
	"audio/ogg":  true,
}

var allowedExtensions = map[string]bool{
	"webm": true,
	"mp3":  true,
	"wav":  true,
	"ogg":  true,
	"m4a":  true,
}

// ValidateAudioFile accepts a file when either its MIME type or its extension is
// on the allow-list. MIME parameters such as codecs are ignored.
func ValidateAudioFile(name, contentType string) error {
	mime := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if allowedMIMETypes[mime] {
		return nil
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if allowedExtensions[ext] {
		return nil
	}
	return ErrInvalidAudioFile
}

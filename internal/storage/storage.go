package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrUploadFailed reports a provider-side upload failure. Callers turn it into a
	// user-facing error; the cause is logged where it happens.
	ErrUploadFailed = errors.New("Failed to upload file to Supabase Storage")
	// ErrSignFailed reports that no signed URL could be issued.
	ErrSignFailed = errors.New("failed to generate signed URL")

	ErrMissingFile = errors.New("file is required")
	ErrMissingUser = errors.New("user id is required")
)

// DefaultSignedURLTTL is the lifetime of a signed URL when none is configured.
const DefaultSignedURLTTL = 600 * time.Second

// Backend is an object store that can hold recordings and mint read URLs for them.
type Backend interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	SignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// File is an audio payload to be uploaded.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBackend struct {
	mu          sync.Mutex
	objects     map[string][]byte
	types       map[string]string
	putErr      error
	signErr     error
	signedTTL   time.Duration
	signedCalls int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryBackend) Put(_ context.Context, key string, body io.Reader, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryBackend) SignURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signedCalls++
	m.signedTTL = ttl
	if m.signErr != nil {
		return "", m.signErr
	}
	return "https://storage.example/" + key + "?token=t", nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestObjectKey(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "u1_1700000000123.wav", ObjectKey("u1", "demo.wav", at))
	assert.Equal(t, "u1_1700000000123.gz", ObjectKey("u1", "archive.tar.gz", at))
	assert.Equal(t, "u1_1700000000123.webm", ObjectKey("u1", "recording", at))
	assert.Equal(t, "u1_1700000000123.webm", ObjectKey("u1", "trailing.", at))
}

func TestUploaderUpload(t *testing.T) {
	backend := newMemoryBackend()
	u := NewUploader(backend, quietLogger())

	obj, err := u.Upload(context.Background(), File{
		Name:        "demo.wav",
		ContentType: "audio/wav",
		Body:        bytes.NewBufferString("RIFF"),
	}, "u1")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^u1_\d+\.wav$`), obj.Key)
	assert.Equal(t, "u1", obj.OwnerID)
	assert.Equal(t, []byte("RIFF"), backend.objects[obj.Key])
	assert.Equal(t, "audio/wav", backend.types[obj.Key])
}

func TestUploaderRequiresInputs(t *testing.T) {
	u := NewUploader(newMemoryBackend(), quietLogger())

	_, err := u.Upload(context.Background(), File{Name: "a.wav"}, "u1")
	assert.ErrorIs(t, err, ErrMissingFile)

	_, err = u.Upload(context.Background(), File{Name: "a.wav", Body: bytes.NewBufferString("x")}, "")
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestUploaderProviderFailure(t *testing.T) {
	backend := newMemoryBackend()
	backend.putErr = errors.New("bucket not found")
	u := NewUploader(backend, quietLogger())

	obj, err := u.Upload(context.Background(), File{Name: "a.wav", Body: bytes.NewBufferString("x")}, "u1")
	assert.Nil(t, obj)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.EqualError(t, err, "Failed to upload file to Supabase Storage")
}

func TestSignerSignedURL(t *testing.T) {
	backend := newMemoryBackend()
	s := NewSigner(backend, 0, quietLogger())
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	grant, err := s.SignedURL(context.Background(), "u1_1.wav", 0)
	require.NoError(t, err)
	assert.Equal(t, "https://storage.example/u1_1.wav?token=t", grant.URL)
	assert.Equal(t, fixed.Add(600*time.Second), grant.ExpiresAt)
	assert.Equal(t, 600*time.Second, backend.signedTTL)

	_, err = s.SignedURL(context.Background(), "u1_1.wav", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, backend.signedTTL)
	assert.Equal(t, 2, backend.signedCalls, "grants are never cached")

	backend.signErr = errors.New("object not found")
	_, err = s.SignedURL(context.Background(), "missing", 0)
	assert.ErrorIs(t, err, ErrSignFailed)
}

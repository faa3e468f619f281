package capture

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxnote/internal/storage"
)

type fakeDevice struct {
	mu      sync.Mutex
	err     error
	opened  int
	writer  *io.PipeWriter
	closed  int
	pending []string
}

func (d *fakeDevice) Open(context.Context) (io.ReadCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	d.opened++
	pr, pw := io.Pipe()
	d.writer = pw
	return &fakeStream{PipeReader: pr, device: d}, nil
}

func (d *fakeDevice) write(t *testing.T, chunk string) {
	t.Helper()
	d.mu.Lock()
	w := d.writer
	d.mu.Unlock()
	_, err := w.Write([]byte(chunk))
	require.NoError(t, err)
}

func (d *fakeDevice) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type fakeStream struct {
	*io.PipeReader
	device *fakeDevice
}

func (s *fakeStream) Close() error {
	s.device.mu.Lock()
	s.device.closed++
	s.device.mu.Unlock()
	return s.PipeReader.Close()
}

type manualTicker struct {
	ch      chan time.Time
	stopped bool
}

func newTestRecorder(device Device) (*Recorder, *manualTicker) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ticker := &manualTicker{ch: make(chan time.Time)}
	r := NewRecorder(device, logger)
	r.now = func() time.Time { return time.UnixMilli(1700000000000) }
	r.newTicker = func(time.Duration) (<-chan time.Time, func()) {
		return ticker.ch, func() { ticker.stopped = true }
	}
	return r, ticker
}

func TestRecordStopProcess(t *testing.T) {
	device := &fakeDevice{}
	r, ticker := newTestRecorder(device)

	require.NoError(t, r.Start(context.Background()))
	assert.Equal(t, StateRecording, r.State())

	device.write(t, "chunk-1;")
	device.write(t, "chunk-2")
	ticker.ch <- time.Now()
	ticker.ch <- time.Now()
	assert.Eventually(t, func() bool { return r.Elapsed() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, r.Stop())
	assert.Equal(t, StateStopped, r.State())
	assert.Equal(t, 1, device.closeCount(), "device released on stop")
	assert.True(t, ticker.stopped)

	blob := r.Blob()
	require.NotNil(t, blob)
	assert.Equal(t, "audio/webm", blob.ContentType)
	assert.Equal(t, "chunk-1;chunk-2", string(blob.Data))

	var got storage.File
	var body []byte
	err := r.Process(context.Background(), func(_ context.Context, f storage.File) error {
		got = f
		var err error
		body, err = io.ReadAll(f.Body)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "recording-1700000000000.webm", got.Name)
	assert.Equal(t, "audio/webm", got.ContentType)
	assert.Equal(t, "chunk-1;chunk-2", string(body))

	assert.Equal(t, StateIdle, r.State())
	assert.Nil(t, r.Blob())
	assert.Zero(t, r.Elapsed())
}

func TestProcessFailureKeepsBlob(t *testing.T) {
	device := &fakeDevice{}
	r, _ := newTestRecorder(device)

	require.NoError(t, r.Start(context.Background()))
	device.write(t, "audio")
	require.NoError(t, r.Stop())

	boom := errors.New("Backend processing failed: boom")
	err := r.Process(context.Background(), func(context.Context, storage.File) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateStopped, r.State())
	require.NotNil(t, r.Blob())

	// retry succeeds with the same audio
	err = r.Process(context.Background(), func(_ context.Context, f storage.File) error {
		data, err := io.ReadAll(f.Body)
		assert.Equal(t, "audio", string(data))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, StateIdle, r.State())
}

func TestStartDeviceFailureStaysIdle(t *testing.T) {
	cause := errors.New("permission denied")
	r, _ := newTestRecorder(&fakeDevice{err: cause})

	err := r.Start(context.Background())
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StateIdle, r.State())
}

func TestIllegalTransitions(t *testing.T) {
	device := &fakeDevice{}
	r, _ := newTestRecorder(device)

	assert.ErrorIs(t, r.Stop(), ErrInvalidState)
	assert.ErrorIs(t, r.Clear(), ErrInvalidState)
	assert.ErrorIs(t, r.Process(context.Background(), nil), ErrNoRecording)

	require.NoError(t, r.Start(context.Background()))
	assert.ErrorIs(t, r.Start(context.Background()), ErrInvalidState)
	assert.ErrorIs(t, r.Clear(), ErrInvalidState)
	assert.Equal(t, 1, device.opened)

	require.NoError(t, r.Stop())
	assert.ErrorIs(t, r.Start(context.Background()), ErrInvalidState)
	assert.ErrorIs(t, r.Stop(), ErrInvalidState)

	require.NoError(t, r.Clear())
	assert.Equal(t, StateIdle, r.State())
	assert.Nil(t, r.Blob())
}

func TestCloseReleasesDeviceWhileRecording(t *testing.T) {
	device := &fakeDevice{}
	r, ticker := newTestRecorder(device)

	require.NoError(t, r.Start(context.Background()))
	device.write(t, "partial")

	require.NoError(t, r.Close())
	assert.Equal(t, 1, device.closeCount())
	assert.True(t, ticker.stopped)
	assert.Equal(t, StateIdle, r.State())
	assert.Nil(t, r.Blob())

	require.NoError(t, r.Close())
	assert.Equal(t, 1, device.closeCount(), "close is idempotent")
	assert.ErrorIs(t, r.Start(context.Background()), ErrClosed)
}

func TestFormatElapsed(t *testing.T) {
	cases := map[int]string{
		0:    "00:00",
		9:    "00:09",
		65:   "01:05",
		600:  "10:00",
		6001: "100:01",
		-3:   "00:00",
	}
	for seconds, want := range cases {
		assert.Equal(t, want, FormatElapsed(seconds))
	}
}

func TestNilLoggerUsesStandardLogger(t *testing.T) {
	device := &fakeDevice{}
	r := NewRecorder(device, nil)
	defer r.Close()

	require.NotPanics(t, func() {
		require.NoError(t, r.Start(context.Background()))
		require.NoError(t, r.Stop())
	})
	assert.Equal(t, StateStopped, r.State())
	assert.Equal(t, 1, device.closeCount())
}

package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"voxnote/internal/storage"
)

const (
	ContentType = "audio/webm"
	chunkSize   = 32 * 1024
)

var (
	ErrInvalidState      = errors.New("recorder: invalid state for operation")
	ErrDeviceUnavailable = errors.New("Failed to access microphone. Please check permissions.")
	ErrNoRecording       = errors.New("No recording to process")
	ErrClosed            = errors.New("recorder: closed")
)

// State is the recorder's position in its idle/recording/stopped cycle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Device opens a live audio stream. Closing the stream releases the device.
type Device interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Blob is a finished recording.
type Blob struct {
	ContentType string
	Data        []byte
}

// ProcessFunc consumes a finished recording as an uploadable file.
type ProcessFunc func(ctx context.Context, file storage.File) error

type Recorder struct {
	device    Device
	logger    logrus.FieldLogger
	now       func() time.Time
	newTicker func(time.Duration) (<-chan time.Time, func())

	mu         sync.Mutex
	state      State
	processing bool
	closed     bool
	blob       *Blob

	stream   io.ReadCloser
	readDone chan struct{}
	stopTick func()

	bufMu   sync.Mutex
	buf     bytes.Buffer
	elapsed atomic.Int64
}

func NewRecorder(device Device, logger logrus.FieldLogger) *Recorder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Recorder{
		device: device,
		logger: logger,
		now:    time.Now,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Elapsed returns the whole seconds counted by the recording ticker.
func (r *Recorder) Elapsed() int {
	return int(r.elapsed.Load())
}

// Blob returns the finished recording, or nil when there is none.
func (r *Recorder) Blob() *Blob {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blob == nil {
		return nil
	}
	b := *r.blob
	return &b
}

// Start acquires the device and begins buffering. On failure the recorder stays idle.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.state != StateIdle {
		return fmt.Errorf("%w: start while %s", ErrInvalidState, r.state)
	}

	stream, err := r.device.Open(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to open capture device")
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	r.bufMu.Lock()
	r.buf.Reset()
	r.bufMu.Unlock()
	r.elapsed.Store(0)

	r.stream = stream
	r.readDone = make(chan struct{})
	go r.readLoop(stream, r.readDone)
	r.stopTick = r.startTicker()
	r.state = StateRecording

	r.logger.Info("Recording started")
	return nil
}

// Stop finalizes the buffered chunks into one blob and releases the device.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return fmt.Errorf("%w: stop while %s", ErrInvalidState, r.state)
	}
	r.release()

	r.bufMu.Lock()
	data := bytes.Clone(r.buf.Bytes())
	r.buf.Reset()
	r.bufMu.Unlock()

	r.blob = &Blob{ContentType: ContentType, Data: data}
	r.state = StateStopped

	r.logger.WithFields(logrus.Fields{
		"bytes":   len(data),
		"seconds": r.Elapsed(),
	}).Info("Recording stopped")
	return nil
}

// Clear discards the finished recording.
func (r *Recorder) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateStopped || r.processing {
		return fmt.Errorf("%w: clear while %s", ErrInvalidState, r.state)
	}
	r.reset()
	return nil
}

// Process hands the finished recording to fn. The blob is cleared when fn succeeds
// and kept for another attempt when it fails.
func (r *Recorder) Process(ctx context.Context, fn ProcessFunc) error {
	r.mu.Lock()
	if r.state != StateStopped || r.blob == nil {
		r.mu.Unlock()
		return ErrNoRecording
	}
	if r.processing {
		r.mu.Unlock()
		return fmt.Errorf("%w: already processing", ErrInvalidState)
	}
	r.processing = true
	blob := r.blob
	r.mu.Unlock()

	file := storage.File{
		Name:        fmt.Sprintf("recording-%d.webm", r.now().UnixMilli()),
		ContentType: blob.ContentType,
		Body:        bytes.NewReader(blob.Data),
	}
	err := fn(ctx, file)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.processing = false
	if err != nil {
		return err
	}
	if r.blob == blob {
		r.reset()
	}
	return nil
}

// Close releases the device if a recording is in progress and discards any
// buffered audio. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.state == StateRecording {
		err = r.release()
		r.logger.Warn("Recorder closed while recording; device released")
	}
	r.bufMu.Lock()
	r.buf.Reset()
	r.bufMu.Unlock()
	r.reset()
	return err
}

func (r *Recorder) reset() {
	r.blob = nil
	r.state = StateIdle
	r.elapsed.Store(0)
}

// release stops the ticker, closes the stream and waits for the reader. Callers hold mu.
func (r *Recorder) release() error {
	r.stopTick()
	err := r.stream.Close()
	<-r.readDone

	r.stream = nil
	r.readDone = nil
	r.stopTick = nil
	if err != nil {
		r.logger.WithError(err).Warn("Failed to close capture device")
	}
	return err
}

func (r *Recorder) readLoop(stream io.Reader, done chan<- struct{}) {
	defer close(done)
	chunk := make([]byte, chunkSize)
	for {
		n, err := stream.Read(chunk)
		if n > 0 {
			r.bufMu.Lock()
			r.buf.Write(chunk[:n])
			r.bufMu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, os.ErrClosed) {
				r.logger.WithError(err).Debug("Capture stream ended")
			}
			return
		}
	}
}

func (r *Recorder) startTicker() func() {
	ticks, stop := r.newTicker(time.Second)
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ticks:
				r.elapsed.Add(1)
			case <-quit:
				return
			}
		}
	}()
	return func() {
		stop()
		close(quit)
		<-done
	}
}

// FormatElapsed renders seconds as mm:ss.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	startupGrace = 300 * time.Millisecond
	stopTimeout  = 5 * time.Second
)

// FFmpegDevice captures the default microphone with the ffmpeg binary and
// streams it as Opus in WebM on stdout.
type FFmpegDevice struct {
	Binary string // defaults to "ffmpeg"
	Format string // input format, e.g. pulse, avfoundation, dshow
	Input  string // input device name for Format
}

// DefaultFFmpegDevice picks the platform's usual audio input.
func DefaultFFmpegDevice() *FFmpegDevice {
	switch runtime.GOOS {
	case "darwin":
		return &FFmpegDevice{Binary: "ffmpeg", Format: "avfoundation", Input: ":0"}
	case "windows":
		return &FFmpegDevice{Binary: "ffmpeg", Format: "dshow", Input: "audio=default"}
	default:
		return &FFmpegDevice{Binary: "ffmpeg", Format: "pulse", Input: "default"}
	}
}

func (d *FFmpegDevice) args() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", d.Format,
		"-i", d.Input,
		"-ac", "1",
		"-c:a", "libopus",
		"-f", "webm",
		"pipe:1",
	}
}

// Open starts ffmpeg. ctx bounds the lifetime of the capture process.
func (d *FFmpegDevice) Open(ctx context.Context) (io.ReadCloser, error) {
	binary := d.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	pr, pw := io.Pipe()
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, binary, d.args()...)
	cmd.Stdout = pw
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	// ffmpeg exits almost immediately when the input device cannot be opened.
	select {
	case err := <-waitErr:
		pw.Close()
		return nil, fmt.Errorf("ffmpeg exited during startup: %v\nStderr: %s", err, strings.TrimSpace(stderr.String()))
	case <-time.After(startupGrace):
	}

	return &ffmpegStream{cmd: cmd, reader: pr, writer: pw, waitErr: waitErr}, nil
}

type ffmpegStream struct {
	cmd     *exec.Cmd
	reader  *io.PipeReader
	writer  *io.PipeWriter
	waitErr chan error

	once sync.Once
	err  error
}

func (s *ffmpegStream) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

// Close asks ffmpeg to finish the container, then closes the pipe so the reader
// sees EOF after the trailing bytes.
func (s *ffmpegStream) Close() error {
	s.once.Do(func() {
		if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
			_ = s.cmd.Process.Kill()
		}
		select {
		case <-s.waitErr:
		case <-time.After(stopTimeout):
			_ = s.cmd.Process.Kill()
			<-s.waitErr
		}
		s.err = s.writer.Close()
	})
	return s.err
}

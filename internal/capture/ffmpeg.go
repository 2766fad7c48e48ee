package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FFmpegConfig describes the microphone input ffmpeg should read.
type FFmpegConfig struct {
	Command     string
	InputFormat string
	InputDevice string
	SampleRate  int
	Channels    int
}

// FFmpegSource captures microphone audio through an ffmpeg subprocess
// writing the encoded stream to stdout.
type FFmpegSource struct {
	cfg FFmpegConfig
}

func NewFFmpegSource(cfg FFmpegConfig) *FFmpegSource {
	if cfg.Command == "" {
		cfg.Command = "ffmpeg"
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &FFmpegSource{cfg: cfg}
}

func (s *FFmpegSource) Available() bool {
	_, err := exec.LookPath(s.cfg.Command)
	return err == nil
}

func (s *FFmpegSource) Encodings() []string {
	return []string{
		"audio/webm;codecs=opus",
		"audio/ogg;codecs=opus",
		"audio/wav",
	}
}

func (s *FFmpegSource) Open(ctx context.Context, encoding string, chunkInterval time.Duration) (SourceStream, error) {
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", s.cfg.InputFormat,
		"-i", s.cfg.InputDevice,
		"-ac", strconv.Itoa(s.cfg.Channels),
		"-ar", strconv.Itoa(s.cfg.SampleRate),
	}
	args = append(args, muxerArgs(encoding)...)
	args = append(args, "-")

	cmd := exec.CommandContext(ctx, s.cfg.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// Catch immediate failures (bad device, denied access) before
	// reporting a live stream.
	select {
	case err := <-waitErr:
		stderrText := strings.TrimSpace(stderr.String())
		if err == nil {
			err = errors.New("ffmpeg exited before capture started")
		}
		return nil, classifyFFmpegError(fmt.Errorf("ffmpeg: %w", err), stderrText)
	case <-time.After(250 * time.Millisecond):
	}

	st := &ffmpegStream{
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
		chunks:  make(chan []byte, 64),
	}
	go st.readLoop()
	return st, nil
}

func muxerArgs(encoding string) []string {
	switch {
	case strings.HasPrefix(encoding, "audio/webm"):
		return []string{"-f", "webm", "-c:a", "libopus"}
	case strings.HasPrefix(encoding, "audio/ogg"):
		return []string{"-f", "ogg", "-c:a", "libopus"}
	default:
		return []string{"-f", "wav"}
	}
}

type ffmpegStream struct {
	stdout  io.ReadCloser
	stderr  *bytes.Buffer
	process *os.Process
	waitErr <-chan error

	chunks chan []byte

	mu      sync.Mutex
	readErr error
	closing bool

	stopOnce sync.Once
}

func (s *ffmpegStream) Chunks() <-chan []byte { return s.chunks }

func (s *ffmpegStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readErr
}

func (s *ffmpegStream) readLoop() {
	defer close(s.chunks)
	buf := make([]byte, 4096)
	for {
		n, err := s.stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.chunks <- chunk
		}
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if !closing && !errors.Is(err, io.EOF) {
				s.setErr(classifyFFmpegError(err, strings.TrimSpace(s.stderr.String())))
			}
			return
		}
	}
}

func (s *ffmpegStream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr == nil {
		s.readErr = err
	}
}

func (s *ffmpegStream) Close() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()

		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}
		select {
		case <-s.waitErr:
		case <-time.After(1200 * time.Millisecond):
			if s.process != nil {
				_ = s.process.Kill()
			}
			<-s.waitErr
		}
		_ = s.stdout.Close()
	})
	return nil
}

// classifyFFmpegError maps access failures onto ErrPermissionDenied so
// callers can fall back to typed input.
func classifyFFmpegError(err error, stderrText string) error {
	lower := strings.ToLower(stderrText)
	if strings.Contains(lower, "permission denied") || strings.Contains(lower, "operation not permitted") || strings.Contains(lower, "access denied") {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, stderrText)
	}
	if stderrText != "" {
		return fmt.Errorf("%w: %s", err, stderrText)
	}
	return err
}

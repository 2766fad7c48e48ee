package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrCaptureActive    = errors.New("a capture session is already active")
	ErrNoDevice         = errors.New("no audio input device available")
	ErrPermissionDenied = errors.New("microphone permission denied")
)

// Cause records what terminated a capture session.
type Cause string

const (
	CauseManual      Cause = "manual"
	CauseMaxDuration Cause = "max_duration"
	CauseDeviceError Cause = "device_error"
)

const (
	DefaultMaxDuration   = 90 * time.Second
	DefaultChunkInterval = 100 * time.Millisecond
)

// Config controls one recorder instance.
type Config struct {
	MaxDuration   time.Duration
	ChunkInterval time.Duration
}

// Recording is the finished blob of one capture session.
type Recording struct {
	Data     []byte
	Encoding string
	Duration time.Duration
	Cause    Cause
}

// Callbacks receive the terminal outcome of one capture session. OnBlob
// and OnError are mutually exclusive and each fires at most once per
// start. OnMaxDuration fires before the forced stop so callers can tell
// the user that truncation, not user action, ended the take.
type Callbacks struct {
	OnBlob        func(Recording)
	OnError       func(error)
	OnMaxDuration func()
}

// Recorder wraps microphone acquisition, chunked recording and a timed
// auto-stop. At most one capture session is active at a time; every exit
// path, including error and timeout, releases the underlying stream.
type Recorder struct {
	source Source
	cfg    Config

	mu   sync.Mutex
	take *take
}

func NewRecorder(source Source, cfg Config) *Recorder {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if cfg.ChunkInterval <= 0 {
		cfg.ChunkInterval = DefaultChunkInterval
	}
	return &Recorder{source: source, cfg: cfg}
}

// Start acquires the source and begins buffered recording. The returned
// Live handle is what the level monitor attaches to. On acquisition
// failure the error callback fires once and the error is also returned.
func (r *Recorder) Start(ctx context.Context, cb Callbacks) (*Live, error) {
	r.mu.Lock()
	if r.take != nil {
		r.mu.Unlock()
		return nil, ErrCaptureActive
	}

	if !r.source.Available() {
		r.mu.Unlock()
		err := fmt.Errorf("open capture source: %w", ErrNoDevice)
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return nil, err
	}

	encoding := NegotiateEncoding(r.source)
	stream, err := r.source.Open(ctx, encoding, r.cfg.ChunkInterval)
	if err != nil {
		r.mu.Unlock()
		err = fmt.Errorf("open capture source: %w", err)
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return nil, err
	}

	t := &take{
		recorder:  r,
		stream:    stream,
		live:      newLive(encoding, time.Now()),
		cb:        cb,
		startedAt: time.Now(),
	}
	t.timer = time.AfterFunc(r.cfg.MaxDuration, t.maxDurationReached)
	r.take = t
	r.mu.Unlock()

	go t.run()
	return t.live, nil
}

// Stop finalizes recording on demand. It is a no-op when no capture
// session is active.
func (r *Recorder) Stop() {
	r.mu.Lock()
	t := r.take
	r.mu.Unlock()
	if t == nil {
		return
	}
	t.markCause(CauseManual)
	_ = t.stream.Close()
}

// Recording reports whether a capture session is active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.take != nil
}

// Elapsed returns how long the active capture session has been running.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.take == nil {
		return 0
	}
	return time.Since(r.take.startedAt)
}

func (r *Recorder) clear(t *take) {
	r.mu.Lock()
	if r.take == t {
		r.take = nil
	}
	r.mu.Unlock()
}

type take struct {
	recorder  *Recorder
	stream    SourceStream
	live      *Live
	cb        Callbacks
	startedAt time.Time
	timer     *time.Timer

	mu    sync.Mutex
	cause Cause
	buf   bytes.Buffer

	finalize sync.Once
}

// markCause records the termination cause once; later causes lose.
func (t *take) markCause(c Cause) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cause != "" {
		return false
	}
	t.cause = c
	return true
}

func (t *take) maxDurationReached() {
	if !t.markCause(CauseMaxDuration) {
		return
	}
	if t.cb.OnMaxDuration != nil {
		t.cb.OnMaxDuration()
	}
	_ = t.stream.Close()
}

func (t *take) run() {
	for chunk := range t.stream.Chunks() {
		t.mu.Lock()
		t.buf.Write(chunk)
		t.mu.Unlock()
		t.live.publish(chunk)
	}
	t.finish(t.stream.Err())
}

func (t *take) finish(err error) {
	t.finalize.Do(func() {
		t.timer.Stop()
		_ = t.stream.Close()
		t.live.reset()
		t.recorder.clear(t)

		if err != nil {
			t.markCause(CauseDeviceError)
			if t.cb.OnError != nil {
				t.cb.OnError(fmt.Errorf("capture device: %w", err))
			}
			return
		}

		// A source that drains on its own counts as a manual stop.
		t.markCause(CauseManual)

		t.mu.Lock()
		data := make([]byte, t.buf.Len())
		copy(data, t.buf.Bytes())
		cause := t.cause
		t.mu.Unlock()

		if t.cb.OnBlob != nil {
			t.cb.OnBlob(Recording{
				Data:     data,
				Encoding: t.live.Encoding,
				Duration: time.Since(t.startedAt),
				Cause:    cause,
			})
		}
	})
}

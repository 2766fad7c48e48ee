package capture

import (
	"context"
	"sync"
	"time"
)

// SourceStream is one live audio acquisition. Chunks delivers buffered
// audio until the stream ends; after the channel closes, Err reports the
// device failure that ended it, if any. Close releases the device and is
// safe to call from any goroutine, any number of times.
type SourceStream interface {
	Chunks() <-chan []byte
	Err() error
	Close() error
}

// Source abstracts the platform audio backend behind capability
// negotiation: Encodings returns the prioritized list of supported
// encodings, queried once at capture start.
type Source interface {
	Available() bool
	Encodings() []string
	Open(ctx context.Context, encoding string, chunkInterval time.Duration) (SourceStream, error)
}

// NegotiateEncoding picks the highest-priority supported encoding.
func NegotiateEncoding(s Source) string {
	encs := s.Encodings()
	if len(encs) == 0 {
		return ""
	}
	return encs[0]
}

// Live is the handle a started capture exposes to collaborators such as
// the level monitor. Taps observe every chunk the recorder buffers and
// are torn down when the underlying stream is released.
type Live struct {
	Encoding  string
	StartedAt time.Time

	mu      sync.Mutex
	taps    map[int]func([]byte)
	nextTap int
}

func newLive(encoding string, startedAt time.Time) *Live {
	return &Live{Encoding: encoding, StartedAt: startedAt, taps: make(map[int]func([]byte))}
}

func (l *Live) attach(fn func([]byte)) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextTap++
	id := l.nextTap
	l.taps[id] = fn
	return id
}

func (l *Live) detach(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.taps, id)
}

func (l *Live) publish(chunk []byte) {
	l.mu.Lock()
	fns := make([]func([]byte), 0, len(l.taps))
	for _, fn := range l.taps {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(chunk)
	}
}

func (l *Live) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.taps = make(map[int]func([]byte))
}

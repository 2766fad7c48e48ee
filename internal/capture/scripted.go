package capture

import (
	"context"
	"sync"
	"time"
)

// ScriptedSource plays a fixed chunk script. It backs the mock provider
// mode and the capture tests.
type ScriptedSource struct {
	ChunkData   [][]byte
	Interval    time.Duration
	Loop        bool
	OpenErr     error
	FailAfter   int
	FailErr     error
	Unavailable bool
}

func (s *ScriptedSource) Available() bool { return !s.Unavailable }

func (s *ScriptedSource) Encodings() []string {
	return []string{"audio/webm;codecs=opus"}
}

func (s *ScriptedSource) Open(_ context.Context, _ string, chunkInterval time.Duration) (SourceStream, error) {
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	interval := s.Interval
	if interval <= 0 {
		interval = chunkInterval
	}
	st := &scriptedStream{
		chunks: make(chan []byte),
		done:   make(chan struct{}),
	}
	go st.play(s.ChunkData, interval, s.Loop, s.FailAfter, s.FailErr)
	return st, nil
}

type scriptedStream struct {
	chunks chan []byte
	done   chan struct{}

	mu      sync.Mutex
	readErr error

	closeOnce sync.Once
}

func (s *scriptedStream) Chunks() <-chan []byte { return s.chunks }

func (s *scriptedStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readErr
}

func (s *scriptedStream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *scriptedStream) play(script [][]byte, interval time.Duration, loop bool, failAfter int, failErr error) {
	defer close(s.chunks)
	sent := 0
	for {
		for _, chunk := range script {
			if failErr != nil && sent >= failAfter {
				s.mu.Lock()
				s.readErr = failErr
				s.mu.Unlock()
				return
			}
			select {
			case <-s.done:
				return
			case <-time.After(interval):
			}
			select {
			case <-s.done:
				return
			case s.chunks <- chunk:
				sent++
			}
		}
		if !loop {
			if failErr != nil && sent >= failAfter {
				s.mu.Lock()
				s.readErr = failErr
				s.mu.Unlock()
			}
			return
		}
	}
}

package interview

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAlreadyActive = errors.New("interview already active")
	ErrNotActive     = errors.New("interview not active")
)

// Session tracks one interview lifecycle. A fresh ID is minted on every
// launch so archived turns from consecutive interviews never collide.
type Session struct {
	mu        sync.Mutex
	id        string
	state     State
	startedAt time.Time
	endedAt   time.Time
	clock     func() time.Time
}

func NewSession() *Session {
	return &Session{
		id:    uuid.NewString(),
		state: StateInactive,
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// Launch transitions to active and assigns a new session ID. It fails when
// an interview is already running.
func (s *Session) Launch() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateActive {
		return "", ErrAlreadyActive
	}
	s.id = uuid.NewString()
	s.state = StateActive
	s.startedAt = s.clock()
	s.endedAt = time.Time{}
	return s.id, nil
}

// End freezes the elapsed clock and transitions to ended.
func (s *Session) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return ErrNotActive
	}
	s.state = StateEnded
	s.endedAt = s.clock()
	return nil
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// Elapsed reports time since launch. It keeps counting while active and
// stays frozen at the final value once the interview ends.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateActive:
		return s.clock().Sub(s.startedAt)
	case StateEnded:
		return s.endedAt.Sub(s.startedAt)
	default:
		return 0
	}
}

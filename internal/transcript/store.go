package transcript

import (
	"errors"
	"sync"
	"time"
)

var ErrTurnNotFound = errors.New("turn not found")

// Store is the append-only ordered log of exchange turns. Identifiers are
// assigned at append time and increase strictly in insertion order.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	turns  []Turn
	clock  func() time.Time
}

func NewStore() *Store {
	return &Store{nextID: 1, clock: func() time.Time { return time.Now().UTC() }}
}

// Append adds a turn to the end of the log, assigning its identifier and
// creation timestamp, and returns the stored copy.
func (s *Store) Append(role Role, text, label string, structured map[string]any) Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := Turn{
		ID:             s.nextID,
		Role:           role,
		Text:           text,
		Label:          label,
		StructuredData: structured,
		CreatedAt:      s.clock(),
	}
	s.nextID++
	s.turns = append(s.turns, t)
	return t
}

// UpdateAudio attaches a synthesized-audio reference to an existing turn.
// This is the only permitted post-append mutation.
func (s *Store) UpdateAudio(id int64, audioRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.turns {
		if s.turns[i].ID == id {
			s.turns[i].AudioRef = audioRef
			return nil
		}
	}
	return ErrTurnNotFound
}

// Clear empties the store. Only invoked at interview (re)launch.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}

// Turns returns the full ordered sequence.
func (s *Store) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

package interview

import (
	"errors"
	"testing"
	"time"
)

func TestSessionLaunchAssignsFreshID(t *testing.T) {
	s := NewSession()
	initial := s.ID()

	id, err := s.Launch()
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if id == "" || id == initial {
		t.Fatalf("Launch() id = %q, want fresh non-empty id", id)
	}
	if s.State() != StateActive {
		t.Fatalf("State() = %q, want %q", s.State(), StateActive)
	}

	if _, err := s.Launch(); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("second Launch() error = %v, want ErrAlreadyActive", err)
	}
}

func TestSessionEndFreezesElapsed(t *testing.T) {
	s := NewSession()
	now := time.Unix(1000, 0)
	s.clock = func() time.Time { return now }

	if _, err := s.Launch(); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	now = now.Add(42 * time.Second)
	if err := s.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	now = now.Add(time.Hour)
	if got := s.Elapsed(); got != 42*time.Second {
		t.Fatalf("Elapsed() = %v, want 42s", got)
	}
	if s.State() != StateEnded {
		t.Fatalf("State() = %q, want %q", s.State(), StateEnded)
	}
}

func TestSessionEndRequiresActive(t *testing.T) {
	s := NewSession()
	if err := s.End(); !errors.Is(err, ErrNotActive) {
		t.Fatalf("End() error = %v, want ErrNotActive", err)
	}
}

func TestSessionRelaunchAfterEnd(t *testing.T) {
	s := NewSession()
	first, err := s.Launch()
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if err := s.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	second, err := s.Launch()
	if err != nil {
		t.Fatalf("relaunch error = %v", err)
	}
	if second == first {
		t.Fatalf("relaunch reused session id %q", second)
	}
	if s.Elapsed() != 0 && s.State() != StateActive {
		t.Fatalf("relaunch state = %q, want active", s.State())
	}
}

func TestSessionElapsedInactiveIsZero(t *testing.T) {
	s := NewSession()
	if got := s.Elapsed(); got != 0 {
		t.Fatalf("Elapsed() = %v, want 0", got)
	}
}

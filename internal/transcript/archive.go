package transcript

import (
	"context"
	"strings"
	"sync"
)

// Archive mirrors appended turns for post-session review. The in-process
// Store stays canonical; the archive is written best-effort.
type Archive interface {
	SaveTurn(ctx context.Context, sessionID string, turn Turn) error
	Close() error
}

// NewArchive creates a postgres-backed archive when configured, otherwise
// an in-memory one.
func NewArchive(ctx context.Context, databaseURL string) (Archive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewMemoryArchive(), nil
	}
	return NewPostgresArchive(ctx, databaseURL)
}

// MemoryArchive keeps archived turns in process for local/dev use.
type MemoryArchive struct {
	mu      sync.RWMutex
	records map[string][]Turn
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{records: make(map[string][]Turn)}
}

func (a *MemoryArchive) SaveTurn(_ context.Context, sessionID string, turn Turn) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records[sessionID] = append(a.records[sessionID], turn)
	return nil
}

// SessionTurns returns the archived turns for one session.
func (a *MemoryArchive) SessionTurns(sessionID string) []Turn {
	a.mu.RLock()
	defer a.mu.RUnlock()
	arr := a.records[sessionID]
	out := make([]Turn, len(arr))
	copy(out, arr)
	return out
}

func (a *MemoryArchive) Close() error { return nil }

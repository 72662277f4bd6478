package usecase

import (
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/allisson/provision/internal/errors"
)

// sessionGuard is the per-session busy flag. It is deliberately not a lock:
// a second mutating call on a busy session fails immediately instead of
// waiting for the first to finish.
type sessionGuard struct {
	mu   sync.Mutex
	busy map[uuid.UUID]struct{}
}

func newSessionGuard() *sessionGuard {
	return &sessionGuard{busy: make(map[uuid.UUID]struct{})}
}

// Acquire marks the session busy. Returns ErrSessionBusy if it already is.
func (g *sessionGuard) Acquire(id uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.busy[id]; ok {
		return apperrors.ErrSessionBusy
	}
	g.busy[id] = struct{}{}
	return nil
}

// Release clears the busy flag. Releasing a non-busy session is a no-op.
func (g *sessionGuard) Release(id uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, id)
}

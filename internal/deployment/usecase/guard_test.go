package usecase

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/provision/internal/errors"
)

func TestSessionGuard_AcquireRelease(t *testing.T) {
	guard := newSessionGuard()
	id := uuid.Must(uuid.NewV7())

	require.NoError(t, guard.Acquire(id))
	assert.ErrorIs(t, guard.Acquire(id), apperrors.ErrSessionBusy)

	guard.Release(id)
	assert.NoError(t, guard.Acquire(id))
}

func TestSessionGuard_IndependentSessions(t *testing.T) {
	guard := newSessionGuard()

	require.NoError(t, guard.Acquire(uuid.Must(uuid.NewV7())))
	assert.NoError(t, guard.Acquire(uuid.Must(uuid.NewV7())))
}

func TestSessionGuard_ReleaseUnknownIsNoop(t *testing.T) {
	guard := newSessionGuard()
	guard.Release(uuid.Must(uuid.NewV7()))
}

func TestSessionGuard_ConcurrentAcquireExactlyOneWins(t *testing.T) {
	guard := newSessionGuard()
	id := uuid.Must(uuid.NewV7())

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if guard.Acquire(id) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBusinessMetrics records metric calls for assertions.
type mockBusinessMetrics struct {
	mu         sync.Mutex
	operations []string
	statuses   []string
	durations  []string
}

func (m *mockBusinessMetrics) RecordOperation(_ context.Context, _, operation, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations = append(m.operations, operation)
	m.statuses = append(m.statuses, status)
}

func (m *mockBusinessMetrics) RecordDuration(_ context.Context, _, operation string, _ time.Duration, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations = append(m.durations, operation)
}

func TestSessionUseCaseWithMetrics(t *testing.T) {
	f := newFixture(t)
	recorder := &mockBusinessMetrics{}
	decorated := NewSessionUseCaseWithMetrics(f.useCase, recorder)
	ctx := context.Background()

	session, err := decorated.Create(ctx, "alice", "project-1", "cloudco")
	require.NoError(t, err)

	_, err = decorated.Get(ctx, session.ID)
	require.NoError(t, err)

	// An error still records, with error status.
	_, err = decorated.Submit(ctx, session.ID)
	require.Error(t, err)

	assert.Equal(t, []string{"session_create", "session_get", "session_submit"}, recorder.operations)
	assert.Equal(t, []string{"success", "success", "error"}, recorder.statuses)
	assert.Equal(t, recorder.operations, recorder.durations)
}

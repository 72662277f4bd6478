package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/provision/internal/errors"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from    State
		to      State
		allowed bool
	}{
		// Happy path
		{StateDraft, StateValidating, true},
		{StateValidating, StatePlanning, true},
		{StatePlanning, StatePlanReady, true},
		{StatePlanReady, StateApproved, true},
		{StateApproved, StateApplying, true},
		{StateApplying, StateApplied, true},

		// Re-validation from plan_ready
		{StatePlanReady, StateValidating, true},

		// Side exits
		{StateDraft, StateCancelled, true},
		{StatePlanning, StateFailed, true},
		{StateApproved, StateExpired, true},

		// Applying is exempt from cancel and expire
		{StateApplying, StateCancelled, false},
		{StateApplying, StateExpired, false},

		// No skipping ahead
		{StateDraft, StatePlanning, false},
		{StateDraft, StateApplied, false},
		{StateValidating, StateApproved, false},
		{StatePlanReady, StateApplying, false},

		// Terminal states have no exits
		{StateApplied, StateDraft, false},
		{StateFailed, StateValidating, false},
		{StateCancelled, StateCancelled, false},
		{StateExpired, StateDraft, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestState_Terminal(t *testing.T) {
	assert.True(t, StateApplied.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateCancelled.Terminal())
	assert.True(t, StateExpired.Terminal())
	assert.False(t, StateDraft.Terminal())
	assert.False(t, StateApplying.Terminal())
}

func TestNewSession(t *testing.T) {
	session := NewSession("user-1", "proj-1", "aws", time.Hour)

	assert.Equal(t, StateDraft, session.State)
	assert.Equal(t, "user-1", session.Owner)
	assert.Equal(t, "proj-1", session.ProjectID)
	assert.Equal(t, "aws", session.Provider)
	assert.WithinDuration(t, session.CreatedAt.Add(time.Hour), session.ExpiresAt, time.Second)
}

func TestSession_Transition(t *testing.T) {
	t.Run("ValidEdge", func(t *testing.T) {
		session := NewSession("user-1", "proj-1", "aws", time.Hour)
		require.NoError(t, session.Transition(StateValidating))
		assert.Equal(t, StateValidating, session.State)
	})

	t.Run("InvalidEdgeLeavesStateUnchanged", func(t *testing.T) {
		session := NewSession("user-1", "proj-1", "aws", time.Hour)
		err := session.Transition(StateApplied)
		assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
		assert.Equal(t, StateDraft, session.State)
	})
}

func TestSession_Expired(t *testing.T) {
	t.Run("ZeroTTLIsImmediatelyExpired", func(t *testing.T) {
		session := NewSession("user-1", "proj-1", "aws", 0)
		assert.True(t, session.Expired(time.Now().UTC().Add(time.Millisecond)))
	})

	t.Run("FutureExpiryNotExpired", func(t *testing.T) {
		session := NewSession("user-1", "proj-1", "aws", time.Hour)
		assert.False(t, session.Expired(time.Now().UTC()))
	})
}

func TestSession_AddResource(t *testing.T) {
	vm := ResourceSpec{Type: "vm", Config: map[string]any{"size": 2}, EstimatedUnitCost: 10}

	t.Run("DraftAllowsAdding", func(t *testing.T) {
		session := NewSession("user-1", "proj-1", "aws", time.Hour)
		require.NoError(t, session.AddResource(vm))
		assert.Len(t, session.Resources, 1)
		assert.Equal(t, StateDraft, session.State)
	})

	t.Run("PlanReadyDiscardsPlanAndRevalidates", func(t *testing.T) {
		session := NewSession("user-1", "proj-1", "aws", time.Hour)
		session.State = StatePlanReady
		session.PlanResult = &PlanResult{ToAdd: 1, Success: true}

		require.NoError(t, session.AddResource(vm))
		assert.Nil(t, session.PlanResult)
		assert.Equal(t, StateValidating, session.State)
	})

	t.Run("ApplyingRejectsAdding", func(t *testing.T) {
		session := NewSession("user-1", "proj-1", "aws", time.Hour)
		session.State = StateApplying

		err := session.AddResource(vm)
		assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
		assert.Empty(t, session.Resources)
	})

	t.Run("ExpiredRejectsAdding", func(t *testing.T) {
		session := NewSession("user-1", "proj-1", "aws", time.Hour)
		session.State = StateExpired

		err := session.AddResource(vm)
		assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	})
}

func TestSession_RemoveResource(t *testing.T) {
	t.Run("RemovesFirstMatch", func(t *testing.T) {
		session := NewSession("user-1", "proj-1", "aws", time.Hour)
		require.NoError(t, session.AddResource(ResourceSpec{Type: "vm"}))
		require.NoError(t, session.AddResource(ResourceSpec{Type: "bucket"}))

		require.NoError(t, session.RemoveResource("vm"))
		require.Len(t, session.Resources, 1)
		assert.Equal(t, "bucket", session.Resources[0].Type)
	})

	t.Run("UnknownTypeNotFound", func(t *testing.T) {
		session := NewSession("user-1", "proj-1", "aws", time.Hour)
		err := session.RemoveResource("vm")
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("RejectedOutsideDraft", func(t *testing.T) {
		session := NewSession("user-1", "proj-1", "aws", time.Hour)
		require.NoError(t, session.AddResource(ResourceSpec{Type: "vm"}))
		session.State = StatePlanReady

		err := session.RemoveResource("vm")
		assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	})
}

func TestSession_ResourceCountsAndCost(t *testing.T) {
	session := NewSession("user-1", "proj-1", "aws", time.Hour)
	require.NoError(t, session.AddResource(ResourceSpec{Type: "vm", EstimatedUnitCost: 10}))
	require.NoError(t, session.AddResource(ResourceSpec{Type: "vm", EstimatedUnitCost: 10}))
	require.NoError(t, session.AddResource(ResourceSpec{Type: "bucket", EstimatedUnitCost: 2.5}))

	assert.Equal(t, map[string]int{"vm": 2, "bucket": 1}, session.ResourceCounts())
	assert.InDelta(t, 22.5, session.EstimatedCost(), 0.001)
}

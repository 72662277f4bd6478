package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Run("WrapNilReturnsNil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "context"))
	})

	t.Run("WrapPreservesChain", func(t *testing.T) {
		wrapped := Wrap(ErrNotFound, "loading session")
		assert.True(t, Is(wrapped, ErrNotFound))
		assert.Equal(t, "loading session: not found", wrapped.Error())
	})

	t.Run("DoubleWrapPreservesChain", func(t *testing.T) {
		wrapped := Wrap(Wrap(ErrQuotaExceeded, "reserve"), "approve")
		assert.True(t, Is(wrapped, ErrQuotaExceeded))
	})
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("outer: %w", ErrSessionBusy)
	assert.True(t, Is(err, ErrSessionBusy))
	assert.False(t, Is(err, ErrConflict))
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntry_Expired(t *testing.T) {
	now := time.Now().UTC()
	entry := &Entry{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, entry.Expired(now))
	// Still redeemable at exactly the expiry instant.
	assert.False(t, entry.Expired(now.Add(time.Minute)))
	assert.True(t, entry.Expired(now.Add(time.Minute+time.Nanosecond)))
	assert.True(t, entry.Expired(now.Add(2*time.Minute)))
}

func TestEntry_Inline(t *testing.T) {
	assert.True(t, (&Entry{Payload: []byte("x")}).Inline())
	assert.False(t, (&Entry{ArtifactKey: "abc"}).Inline())
}

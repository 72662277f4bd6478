package domain

import (
	"time"

	"github.com/google/uuid"
)

// Entry is the in-memory record for one issued token. Exactly one of Payload
// and ArtifactKey is set: small payloads stay inline, large ones live in the
// artifact bucket under ArtifactKey.
type Entry struct {
	Token       string
	Owner       string
	SessionID   uuid.UUID
	Payload     []byte
	ArtifactKey string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the entry is past its expiry at the given instant.
// An entry is still redeemable at exactly ExpiresAt.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Inline reports whether the payload is stored in memory rather than in the
// artifact bucket.
func (e *Entry) Inline() bool {
	return e.ArtifactKey == ""
}

package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Vault issues and redeems short-lived single-use tokens for generated
// payloads.
type Vault interface {
	// Issue stores the payload and returns a redemption token valid for
	// ttl. Payloads above the inline threshold go to the artifact store.
	Issue(ctx context.Context, owner string, sessionID uuid.UUID, payload []byte, ttl time.Duration) (string, error)

	// Redeem returns the payload for token and consumes the entry. Unknown
	// and expired tokens both return apperrors.ErrNotFound.
	Redeem(ctx context.Context, token string) ([]byte, error)

	// Sweep removes expired entries and orphaned artifacts. Returns the
	// number of entries purged.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

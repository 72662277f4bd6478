// Package usecase implements the resource ledger: atomic quota
// reservation/release and permission grant lookups.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	ledgerDomain "github.com/allisson/provision/internal/ledger/domain"
)

// QuotaRepository defines persistence operations for quota records.
type QuotaRepository interface {
	ListByProject(ctx context.Context, projectID string) ([]*ledgerDomain.QuotaRecord, error)
	AdjustUsed(ctx context.Context, projectID string, resourceType string, delta int) error
	Upsert(ctx context.Context, record *ledgerDomain.QuotaRecord) error
}

// GrantRepository defines persistence operations for permission grants.
type GrantRepository interface {
	Create(ctx context.Context, grant *ledgerDomain.PermissionGrant) error
	ListActive(
		ctx context.Context,
		userID string,
		projectID string,
		now time.Time,
	) ([]*ledgerDomain.PermissionGrant, error)
}

// QuotaLedger exposes atomic quota operations. The check and the reservation
// happen under the same project-scoped lock, so concurrent approvals cannot
// both pass a check only one can satisfy.
type QuotaLedger interface {
	// Quotas returns the current quota records for a project.
	Quotas(ctx context.Context, projectID string) ([]*ledgerDomain.QuotaRecord, error)

	// Reserve atomically checks and increments the used counters for all
	// deltas, recording a soft reservation keyed by session. Returns
	// ErrQuotaExceeded if any resource type would exceed its ceiling.
	Reserve(ctx context.Context, sessionID uuid.UUID, projectID string, deltas map[string]int) error

	// Commit finalizes a reservation after a successful apply. The counters
	// already reflect the usage; the soft hold is discarded.
	Commit(ctx context.Context, sessionID uuid.UUID) error

	// Release undoes a reservation, decrementing the used counters. It is a
	// no-op for unknown sessions so failure paths may call it unconditionally.
	Release(ctx context.Context, sessionID uuid.UUID) error
}

// GrantReader exposes permission lookups for the policy validator.
type GrantReader interface {
	ActiveGrants(ctx context.Context, userID, projectID string) ([]*ledgerDomain.PermissionGrant, error)
}

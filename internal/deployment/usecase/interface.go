// Package usecase implements the deployment session orchestrator: the state
// machine driver coordinating validation, planning, quota reservation, and
// the streamed apply.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	deploymentDomain "github.com/allisson/provision/internal/deployment/domain"
	"github.com/allisson/provision/internal/runner"
)

// SessionRepository defines persistence operations for sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *deploymentDomain.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*deploymentDomain.Session, error)
	Update(ctx context.Context, session *deploymentDomain.Session) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*deploymentDomain.Session, error)
}

// WorkspaceManager renders and disposes of tool working directories.
type WorkspaceManager interface {
	Create(sessionID uuid.UUID, provider string, resources []deploymentDomain.ResourceSpec) (string, error)
	Remove(dir string) error
}

// SessionUseCase exposes the session lifecycle. All mutating operations are
// guarded by a per-session busy flag: a second concurrent call fails fast
// with ErrSessionBusy instead of queuing.
type SessionUseCase interface {
	// Create opens a draft session owned by owner.
	Create(ctx context.Context, owner, projectID, provider string) (*deploymentDomain.Session, error)

	// Get returns the session snapshot.
	Get(ctx context.Context, id uuid.UUID) (*deploymentDomain.Session, error)

	// AddResource appends a resource spec. In plan_ready this discards the
	// plan and moves the session back to validating.
	AddResource(ctx context.Context, id uuid.UUID, spec deploymentDomain.ResourceSpec) (*deploymentDomain.Session, error)

	// RemoveResource removes the first resource of the given type (draft only).
	RemoveResource(ctx context.Context, id uuid.UUID, resourceType string) (*deploymentDomain.Session, error)

	// Submit validates the change-set and, when valid, runs a plan. The
	// outcome is reflected in the returned snapshot: plan_ready on success,
	// failed with violations or plan errors otherwise.
	Submit(ctx context.Context, id uuid.UUID) (*deploymentDomain.Session, error)

	// Approve reserves quota for the planned change-set and starts the apply
	// in the background. The snapshot returned is already in applying.
	Approve(ctx context.Context, id uuid.UUID) (*deploymentDomain.Session, error)

	// Cancel aborts a non-applying, non-terminal session and releases any
	// quota reservation.
	Cancel(ctx context.Context, id uuid.UUID) (*deploymentDomain.Session, error)

	// Subscribe attaches to the session's apply output stream.
	Subscribe(id uuid.UUID) (<-chan runner.Message, func())

	// Export renders the session's resources into a reviewable bundle and
	// issues a single-use vault token for it.
	Export(ctx context.Context, id uuid.UUID) (string, error)

	// ExpireDue transitions sessions past their TTL to expired, releasing
	// reservations. Returns the number of sessions expired.
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// Package usecase implements audit record writing, listing, and retention pruning.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/provision/internal/audit/domain"
)

// AuditRepository defines persistence operations for audit records.
type AuditRepository interface {
	Create(ctx context.Context, record *auditDomain.Record) error
	ListByProject(ctx context.Context, projectID string, offset, limit int) ([]*auditDomain.Record, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UseCase exposes audit operations.
type UseCase interface {
	// Record appends an audit record. Failures are logged but not propagated:
	// audit writing must never fail a deployment operation.
	Record(ctx context.Context, record *auditDomain.Record)

	// List returns a project's audit records, newest first.
	List(ctx context.Context, projectID string, offset, limit int) ([]*auditDomain.Record, error)

	// Prune deletes records older than the retention window.
	// When dryRun is set it only counts. Returns the affected row count.
	Prune(ctx context.Context, retention time.Duration, dryRun bool) (int64, error)
}

// auditUseCase implements UseCase.
type auditUseCase struct {
	auditRepo AuditRepository
	logger    *slog.Logger
}

// NewAuditUseCase creates a new audit use case.
func NewAuditUseCase(auditRepo AuditRepository, logger *slog.Logger) UseCase {
	return &auditUseCase{auditRepo: auditRepo, logger: logger}
}

// Record appends an audit record, filling in the ID and timestamp.
func (a *auditUseCase) Record(ctx context.Context, record *auditDomain.Record) {
	if record.ID == uuid.Nil {
		record.ID = uuid.Must(uuid.NewV7())
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if err := a.auditRepo.Create(ctx, record); err != nil {
		a.logger.Error("failed to write audit record",
			slog.String("event_type", string(record.EventType)),
			slog.String("session_id", record.SessionID.String()),
			slog.Any("error", err),
		)
	}
}

// List returns a project's audit records, newest first.
func (a *auditUseCase) List(
	ctx context.Context,
	projectID string,
	offset, limit int,
) ([]*auditDomain.Record, error) {
	return a.auditRepo.ListByProject(ctx, projectID, offset, limit)
}

// Prune deletes records older than the retention window.
func (a *auditUseCase) Prune(
	ctx context.Context,
	retention time.Duration,
	dryRun bool,
) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	if dryRun {
		return a.auditRepo.CountBefore(ctx, cutoff)
	}
	return a.auditRepo.DeleteBefore(ctx, cutoff)
}

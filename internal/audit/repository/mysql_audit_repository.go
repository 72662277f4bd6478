package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	auditDomain "github.com/allisson/provision/internal/audit/domain"
	"github.com/allisson/provision/internal/database"
	apperrors "github.com/allisson/provision/internal/errors"
)

// MySQLAuditRepository implements audit record persistence for MySQL databases.
type MySQLAuditRepository struct {
	db *sql.DB
}

// NewMySQLAuditRepository creates a new MySQL audit repository.
func NewMySQLAuditRepository(db *sql.DB) *MySQLAuditRepository {
	return &MySQLAuditRepository{db: db}
}

// Create appends a new audit record.
func (m *MySQLAuditRepository) Create(ctx context.Context, record *auditDomain.Record) error {
	querier := database.GetTx(ctx, m.db)

	var metadata []byte
	if record.Metadata != nil {
		var err error
		metadata, err = json.Marshal(record.Metadata)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit metadata")
		}
	}

	id, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit record id")
	}
	sessionID, err := record.SessionID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal session id")
	}

	query := `INSERT INTO audit_records (id, event_type, actor, project_id, session_id, outcome, metadata, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		record.EventType,
		record.Actor,
		record.ProjectID,
		sessionID,
		record.Outcome,
		metadata,
		record.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit record")
	}
	return nil
}

// ListByProject retrieves audit records for a project, newest first.
func (m *MySQLAuditRepository) ListByProject(
	ctx context.Context,
	projectID string,
	offset, limit int,
) ([]*auditDomain.Record, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, event_type, actor, project_id, session_id, outcome, metadata, created_at
			  FROM audit_records
			  WHERE project_id = ?
			  ORDER BY created_at DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, projectID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit records")
	}
	defer rows.Close()

	return scanRecords(rows)
}

// DeleteBefore removes audit records created before the cutoff.
// Returns the number of deleted rows.
func (m *MySQLAuditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM audit_records WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete audit records")
	}
	return result.RowsAffected()
}

// CountBefore counts audit records created before the cutoff (dry-run support).
func (m *MySQLAuditRepository) CountBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	var count int64
	err := querier.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM audit_records WHERE created_at < ?`,
		cutoff,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count audit records")
	}
	return count, nil
}

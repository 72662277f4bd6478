// Package repository implements data persistence for audit records.
// Repositories support both PostgreSQL and MySQL.
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

// PostgreSQLAuditRepository implements audit record persistence for PostgreSQL databases.
type PostgreSQLAuditRepository struct {
	db *sql.DB
}

// NewPostgreSQLAuditRepository creates a new PostgreSQL audit repository.
func NewPostgreSQLAuditRepository(db *sql.DB) *PostgreSQLAuditRepository {
	return &PostgreSQLAuditRepository{db: db}
}

// Create appends a new audit record.
func (p *PostgreSQLAuditRepository) Create(ctx context.Context, record *auditDomain.Record) error {
	querier := database.GetTx(ctx, p.db)

	var metadata []byte
	if record.Metadata != nil {
		var err error
		metadata, err = json.Marshal(record.Metadata)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit metadata")
		}
	}

	query := `INSERT INTO audit_records (id, event_type, actor, project_id, session_id, outcome, metadata, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
		record.EventType,
		record.Actor,
		record.ProjectID,
		record.SessionID,
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
func (p *PostgreSQLAuditRepository) ListByProject(
	ctx context.Context,
	projectID string,
	offset, limit int,
) ([]*auditDomain.Record, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, event_type, actor, project_id, session_id, outcome, metadata, created_at
			  FROM audit_records
			  WHERE project_id = $1
			  ORDER BY created_at DESC
			  OFFSET $2 LIMIT $3`

	rows, err := querier.QueryContext(ctx, query, projectID, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit records")
	}
	defer rows.Close()

	return scanRecords(rows)
}

// DeleteBefore removes audit records created before the cutoff.
// Returns the number of deleted rows.
func (p *PostgreSQLAuditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM audit_records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete audit records")
	}
	return result.RowsAffected()
}

// CountBefore counts audit records created before the cutoff (dry-run support).
func (p *PostgreSQLAuditRepository) CountBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	err := querier.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM audit_records WHERE created_at < $1`,
		cutoff,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count audit records")
	}
	return count, nil
}

// scanRecords converts result rows into audit record entities.
func scanRecords(rows *sql.Rows) ([]*auditDomain.Record, error) {
	var records []*auditDomain.Record
	for rows.Next() {
		var record auditDomain.Record
		var metadata []byte
		if err := rows.Scan(
			&record.ID,
			&record.EventType,
			&record.Actor,
			&record.ProjectID,
			&record.SessionID,
			&record.Outcome,
			&metadata,
			&record.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit record")
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal audit metadata")
			}
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit records")
	}
	return records, nil
}

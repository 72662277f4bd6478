// Package repository implements data persistence for the resource ledger.
// Repositories support both PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/provision/internal/database"
	apperrors "github.com/allisson/provision/internal/errors"
	ledgerDomain "github.com/allisson/provision/internal/ledger/domain"
)

// PostgreSQLQuotaRepository implements quota persistence for PostgreSQL databases.
type PostgreSQLQuotaRepository struct {
	db *sql.DB
}

// NewPostgreSQLQuotaRepository creates a new PostgreSQL quota repository.
func NewPostgreSQLQuotaRepository(db *sql.DB) *PostgreSQLQuotaRepository {
	return &PostgreSQLQuotaRepository{db: db}
}

// ListByProject retrieves all quota records for a project.
func (p *PostgreSQLQuotaRepository) ListByProject(
	ctx context.Context,
	projectID string,
) ([]*ledgerDomain.QuotaRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT project_id, resource_type, quota_limit, used, updated_at
			  FROM quotas
			  WHERE project_id = $1
			  ORDER BY resource_type`

	rows, err := querier.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list quotas")
	}
	defer rows.Close()

	var records []*ledgerDomain.QuotaRecord
	for rows.Next() {
		var record ledgerDomain.QuotaRecord
		if err := rows.Scan(
			&record.ProjectID,
			&record.ResourceType,
			&record.Limit,
			&record.Used,
			&record.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan quota record")
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate quota records")
	}

	return records, nil
}

// AdjustUsed changes the used counter for a quota record by delta.
// Callers must hold the project-scoped ledger lock; this method does not
// re-check the ceiling.
func (p *PostgreSQLQuotaRepository) AdjustUsed(
	ctx context.Context,
	projectID string,
	resourceType string,
	delta int,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE quotas
			  SET used = used + $1, updated_at = $2
			  WHERE project_id = $3 AND resource_type = $4`

	result, err := querier.ExecContext(ctx, query, delta, time.Now().UTC(), projectID, resourceType)
	if err != nil {
		return apperrors.Wrap(err, "failed to adjust quota usage")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Upsert creates or replaces a quota ceiling for a project and resource type.
func (p *PostgreSQLQuotaRepository) Upsert(
	ctx context.Context,
	record *ledgerDomain.QuotaRecord,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO quotas (project_id, resource_type, quota_limit, used, updated_at)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (project_id, resource_type)
			  DO UPDATE SET quota_limit = EXCLUDED.quota_limit, updated_at = EXCLUDED.updated_at`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ProjectID,
		record.ResourceType,
		record.Limit,
		record.Used,
		record.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert quota")
	}
	return nil
}

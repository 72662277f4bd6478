package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/provision/internal/database"
	apperrors "github.com/allisson/provision/internal/errors"
	ledgerDomain "github.com/allisson/provision/internal/ledger/domain"
)

// MySQLQuotaRepository implements quota persistence for MySQL databases.
type MySQLQuotaRepository struct {
	db *sql.DB
}

// NewMySQLQuotaRepository creates a new MySQL quota repository.
func NewMySQLQuotaRepository(db *sql.DB) *MySQLQuotaRepository {
	return &MySQLQuotaRepository{db: db}
}

// ListByProject retrieves all quota records for a project.
func (m *MySQLQuotaRepository) ListByProject(
	ctx context.Context,
	projectID string,
) ([]*ledgerDomain.QuotaRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT project_id, resource_type, quota_limit, used, updated_at
			  FROM quotas
			  WHERE project_id = ?
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
func (m *MySQLQuotaRepository) AdjustUsed(
	ctx context.Context,
	projectID string,
	resourceType string,
	delta int,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE quotas
			  SET used = used + ?, updated_at = ?
			  WHERE project_id = ? AND resource_type = ?`

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
func (m *MySQLQuotaRepository) Upsert(
	ctx context.Context,
	record *ledgerDomain.QuotaRecord,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO quotas (project_id, resource_type, quota_limit, used, updated_at)
			  VALUES (?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE quota_limit = VALUES(quota_limit), updated_at = VALUES(updated_at)`

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

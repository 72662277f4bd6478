package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/provision/internal/database"
	deploymentDomain "github.com/allisson/provision/internal/deployment/domain"
	apperrors "github.com/allisson/provision/internal/errors"
)

// PostgreSQLSessionRepository implements session persistence for PostgreSQL databases.
type PostgreSQLSessionRepository struct {
	db *sql.DB
}

// NewPostgreSQLSessionRepository creates a new PostgreSQL session repository.
func NewPostgreSQLSessionRepository(db *sql.DB) *PostgreSQLSessionRepository {
	return &PostgreSQLSessionRepository{db: db}
}

// Create inserts a new session.
func (p *PostgreSQLSessionRepository) Create(
	ctx context.Context,
	session *deploymentDomain.Session,
) error {
	querier := database.GetTx(ctx, p.db)

	row, err := encodeSession(session)
	if err != nil {
		return err
	}

	query := `INSERT INTO sessions (id, owner, project_id, provider, state, resources, plan_result, violations, warnings, created_at, expires_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = querier.ExecContext(
		ctx,
		query,
		session.ID,
		session.Owner,
		session.ProjectID,
		session.Provider,
		session.State,
		row.resources,
		row.planResult,
		row.violations,
		row.warnings,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create session")
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (p *PostgreSQLSessionRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*deploymentDomain.Session, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, owner, project_id, provider, state, resources, plan_result, violations, warnings, created_at, expires_at
			  FROM sessions
			  WHERE id = $1`

	return scanSession(querier.QueryRowContext(ctx, query, id))
}

// Update persists the full session snapshot.
func (p *PostgreSQLSessionRepository) Update(
	ctx context.Context,
	session *deploymentDomain.Session,
) error {
	querier := database.GetTx(ctx, p.db)

	row, err := encodeSession(session)
	if err != nil {
		return err
	}

	query := `UPDATE sessions
			  SET state = $1, resources = $2, plan_result = $3, violations = $4, warnings = $5, expires_at = $6
			  WHERE id = $7`

	result, err := querier.ExecContext(
		ctx,
		query,
		session.State,
		row.resources,
		row.planResult,
		row.violations,
		row.warnings,
		session.ExpiresAt,
		session.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update session")
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

// ListExpired retrieves sessions past their TTL that are neither terminal nor
// applying, oldest first.
func (p *PostgreSQLSessionRepository) ListExpired(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*deploymentDomain.Session, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, owner, project_id, provider, state, resources, plan_result, violations, warnings, created_at, expires_at
			  FROM sessions
			  WHERE expires_at < $1 AND state NOT IN ('applying', 'applied', 'failed', 'cancelled', 'expired')
			  ORDER BY expires_at
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list expired sessions")
	}
	defer rows.Close()

	return scanSessions(rows)
}

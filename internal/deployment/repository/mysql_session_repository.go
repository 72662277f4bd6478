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

// MySQLSessionRepository implements session persistence for MySQL databases.
type MySQLSessionRepository struct {
	db *sql.DB
}

// NewMySQLSessionRepository creates a new MySQL session repository.
func NewMySQLSessionRepository(db *sql.DB) *MySQLSessionRepository {
	return &MySQLSessionRepository{db: db}
}

// Create inserts a new session.
func (m *MySQLSessionRepository) Create(
	ctx context.Context,
	session *deploymentDomain.Session,
) error {
	querier := database.GetTx(ctx, m.db)

	row, err := encodeSession(session)
	if err != nil {
		return err
	}

	id, err := session.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal session id")
	}

	query := `INSERT INTO sessions (id, owner, project_id, provider, state, resources, plan_result, violations, warnings, created_at, expires_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLSessionRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*deploymentDomain.Session, error) {
	querier := database.GetTx(ctx, m.db)

	binaryID, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal session id")
	}

	query := `SELECT id, owner, project_id, provider, state, resources, plan_result, violations, warnings, created_at, expires_at
			  FROM sessions
			  WHERE id = ?`

	return scanSession(querier.QueryRowContext(ctx, query, binaryID))
}

// Update persists the full session snapshot.
func (m *MySQLSessionRepository) Update(
	ctx context.Context,
	session *deploymentDomain.Session,
) error {
	querier := database.GetTx(ctx, m.db)

	row, err := encodeSession(session)
	if err != nil {
		return err
	}

	id, err := session.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal session id")
	}

	query := `UPDATE sessions
			  SET state = ?, resources = ?, plan_result = ?, violations = ?, warnings = ?, expires_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		session.State,
		row.resources,
		row.planResult,
		row.violations,
		row.warnings,
		session.ExpiresAt,
		id,
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
func (m *MySQLSessionRepository) ListExpired(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*deploymentDomain.Session, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, owner, project_id, provider, state, resources, plan_result, violations, warnings, created_at, expires_at
			  FROM sessions
			  WHERE expires_at < ? AND state NOT IN ('applying', 'applied', 'failed', 'cancelled', 'expired')
			  ORDER BY expires_at
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list expired sessions")
	}
	defer rows.Close()

	return scanSessions(rows)
}

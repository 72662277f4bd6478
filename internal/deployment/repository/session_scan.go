package repository

import (
	"database/sql"
	"encoding/json"

	deploymentDomain "github.com/allisson/provision/internal/deployment/domain"
	apperrors "github.com/allisson/provision/internal/errors"
)

// sessionRow holds the JSON-encoded columns shared by both drivers.
type sessionRow struct {
	resources  []byte
	planResult []byte
	violations []byte
	warnings   []byte
}

func encodeSession(session *deploymentDomain.Session) (*sessionRow, error) {
	row := &sessionRow{}

	var err error
	if row.resources, err = json.Marshal(session.Resources); err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal session resources")
	}
	if session.PlanResult != nil {
		if row.planResult, err = json.Marshal(session.PlanResult); err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal session plan result")
		}
	}
	if row.violations, err = json.Marshal(session.Violations); err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal session violations")
	}
	if row.warnings, err = json.Marshal(session.Warnings); err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal session warnings")
	}

	return row, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(scanner rowScanner) (*deploymentDomain.Session, error) {
	var session deploymentDomain.Session
	var resources, planResult, violations, warnings []byte

	err := scanner.Scan(
		&session.ID,
		&session.Owner,
		&session.ProjectID,
		&session.Provider,
		&session.State,
		&resources,
		&planResult,
		&violations,
		&warnings,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan session")
	}

	if len(resources) > 0 {
		if err := json.Unmarshal(resources, &session.Resources); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal session resources")
		}
	}
	if len(planResult) > 0 {
		session.PlanResult = &deploymentDomain.PlanResult{}
		if err := json.Unmarshal(planResult, session.PlanResult); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal session plan result")
		}
	}
	if len(violations) > 0 {
		if err := json.Unmarshal(violations, &session.Violations); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal session violations")
		}
	}
	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &session.Warnings); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal session warnings")
		}
	}

	return &session, nil
}

func scanSessions(rows *sql.Rows) ([]*deploymentDomain.Session, error) {
	var sessions []*deploymentDomain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate sessions")
	}
	return sessions, nil
}

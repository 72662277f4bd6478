package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/provision/internal/audit/domain"
)

var auditColumns = []string{
	"id", "event_type", "actor", "project_id", "session_id", "outcome", "metadata", "created_at",
}

func testRecord() *auditDomain.Record {
	return &auditDomain.Record{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: auditDomain.SessionCreated,
		Actor:     "alice",
		ProjectID: "project-1",
		SessionID: uuid.Must(uuid.NewV7()),
		Outcome:   "success",
		Metadata:  map[string]any{"provider": "cloudco"},
		CreatedAt: time.Now().UTC(),
	}
}

func TestPostgreSQLAuditRepository_Create(t *testing.T) {
	t.Run("WithMetadata", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPostgreSQLAuditRepository(db)
		record := testRecord()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_records")).
			WithArgs(
				record.ID,
				record.EventType,
				record.Actor,
				record.ProjectID,
				record.SessionID,
				record.Outcome,
				sqlmock.AnyArg(), // marshalled metadata
				record.CreatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(context.Background(), record))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NilMetadata", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPostgreSQLAuditRepository(db)
		record := testRecord()
		record.Metadata = nil

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_records")).
			WithArgs(
				record.ID,
				record.EventType,
				record.Actor,
				record.ProjectID,
				record.SessionID,
				record.Outcome,
				[]byte(nil),
				record.CreatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(context.Background(), record))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLAuditRepository_ListByProject(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLAuditRepository(db)
	now := time.Now().UTC()
	sessionID := uuid.Must(uuid.NewV7())

	rows := sqlmock.NewRows(auditColumns).
		AddRow(
			uuid.Must(uuid.NewV7()), "deployment_completed", "alice", "project-1",
			sessionID, "success", []byte(`{"apply_duration_ms": 4200}`), now,
		).
		AddRow(
			uuid.Must(uuid.NewV7()), "session_created", "alice", "project-1",
			sessionID, "success", nil, now.Add(-time.Minute),
		)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, event_type, actor, project_id, session_id, outcome, metadata, created_at")).
		WithArgs("project-1", 0, 50).
		WillReturnRows(rows)

	records, err := repo.ListByProject(context.Background(), "project-1", 0, 50)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, auditDomain.DeploymentCompleted, records[0].EventType)
	assert.Equal(t, 4200.0, records[0].Metadata["apply_duration_ms"])
	assert.Equal(t, auditDomain.SessionCreated, records[1].EventType)
	assert.Nil(t, records[1].Metadata)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLAuditRepository_DeleteBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLAuditRepository(db)
	cutoff := time.Now().UTC().Add(-90 * 24 * time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM audit_records WHERE created_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 12))

	deleted, err := repo.DeleteBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(12), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLAuditRepository_CountBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLAuditRepository(db)
	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_records WHERE created_at < $1")).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

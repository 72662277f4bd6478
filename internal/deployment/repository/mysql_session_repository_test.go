package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLSessionRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLSessionRepository(db)
	session := testSession(t)

	binaryID, err := session.ID.MarshalBinary()
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs(
			binaryID, session.Owner, session.ProjectID, session.Provider,
			string(session.State), sqlmock.AnyArg(), []byte(nil), sqlmock.AnyArg(), sqlmock.AnyArg(),
			session.CreatedAt, session.ExpiresAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), session))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSessionRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLSessionRepository(db)
	session := testSession(t)

	binaryID, err := session.ID.MarshalBinary()
	require.NoError(t, err)

	rows := mockSessionRows(t, session)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner, project_id, provider, state")).
		WithArgs(binaryID).
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSessionRepository_ListExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLSessionRepository(db)
	session := testSession(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner, project_id, provider, state")).
		WithArgs(now, 50).
		WillReturnRows(mockSessionRows(t, session))

	sessions, err := repo.ListExpired(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

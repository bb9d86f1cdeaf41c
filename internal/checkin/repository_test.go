package checkin

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kickgym/internal/apperr"
	"kickgym/internal/db"
)

func setupMock(t *testing.T) (*SQLRepository, *sqlx.DB, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(conn, "sqlmock")
	t.Cleanup(func() { sqlxDB.Close() })

	return NewRepository(sqlxDB), sqlxDB, mock
}

var sessionCols = []string{"id", "member_id", "checked_in_at", "checked_out_at", "method"}

func TestResolveMember(t *testing.T) {
	repo, _, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.member_number = $1 OR a.badge_code = $1")).
		WithArgs("M000042").
		WillReturnRows(sqlmock.NewRows([]string{"member_id", "name", "member_number", "status"}).AddRow(42, "Dana Fox", "M000042", "active"))

	m, err := repo.ResolveMember(context.Background(), "M000042")
	require.NoError(t, err)
	assert.Equal(t, 42, m.ID)
	assert.Equal(t, "Dana Fox", m.Name)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.member_number = $1 OR a.badge_code = $1")).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"member_id", "name", "member_number", "status"}))

	_, err = repo.ResolveMember(context.Background(), "nobody")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestFindOpenForUpdate(t *testing.T) {
	repo, _, mock := setupMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE member_id = $1 AND checked_out_at IS NULL")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(sessionCols))

	open, err := repo.FindOpenForUpdate(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, open)

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow(3, 42, now, nil, "qr"))

	open, err = repo.FindOpenForUpdate(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.True(t, open.IsOpen())
}

func TestOpenAndClose(t *testing.T) {
	repo, _, mock := setupMock(t)
	in := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	out := in.Add(90 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO checkin_sessions (member_id, checked_in_at, method)")).
		WithArgs(42, in, MethodManual).
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow(3, 42, in, nil, "manual"))

	s, err := repo.Open(context.Background(), 42, MethodManual, in)
	require.NoError(t, err)
	assert.Equal(t, MethodManual, s.Method)

	mock.ExpectQuery(regexp.QuoteMeta("SET checked_out_at = $2")).
		WithArgs(3, out).
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow(3, 42, in, out, "manual"))

	s, err = repo.Close(context.Background(), 3, out)
	require.NoError(t, err)
	require.NotNil(t, s.CheckedOutAt)
	assert.Equal(t, out, *s.CheckedOutAt)
}

func TestCloseAlreadyClosedIsConflict(t *testing.T) {
	repo, _, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND checked_out_at IS NULL")).
		WithArgs(3, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(sessionCols))

	_, err := repo.Close(context.Background(), 3, time.Now())
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestLockMember(t *testing.T) {
	repo, sqlxDB, mock := setupMock(t)

	assert.Error(t, repo.LockMember(context.Background(), 42))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1, $2)")).
		WithArgs(db.LockCheckIn, 42).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.NewTxManager(sqlxDB).RunInTx(context.Background(), func(ctx context.Context) error {
		return repo.LockMember(ctx, 42)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListOpen(t *testing.T) {
	repo, _, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.checked_out_at IS NULL")).
		WillReturnRows(sqlmock.NewRows(append(sessionCols, "member_name", "member_number")).
			AddRow(3, 42, time.Now(), nil, "qr", "Dana Fox", "M000042"))

	sessions, err := repo.ListOpen(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Dana Fox", sessions[0].MemberName)
	assert.Equal(t, 42, sessions[0].MemberID)
}

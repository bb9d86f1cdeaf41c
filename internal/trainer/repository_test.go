package trainer

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
)

func setupMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(conn, "sqlmock")
	t.Cleanup(func() { sqlxDB.Close() })

	return NewRepository(sqlxDB), mock
}

var trainerCols = []string{"id", "name", "specialty", "max_concurrent", "active", "created_at"}

func TestCreateTrainer(t *testing.T) {
	repo, mock := setupMock(t)
	limit := 2

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO trainers (name, specialty, max_concurrent)")).
		WithArgs("Alex Kim", "Boxing", &limit).
		WillReturnRows(sqlmock.NewRows(trainerCols).AddRow(1, "Alex Kim", "Boxing", 2, true, time.Now()))

	tr, err := repo.Create(context.Background(), CreateTrainerRequest{Name: "Alex Kim", Specialty: "Boxing", MaxConcurrent: &limit})
	require.NoError(t, err)
	assert.Equal(t, 1, tr.ID)
	require.NotNil(t, tr.MaxConcurrent)
	assert.Equal(t, 2, *tr.MaxConcurrent)
}

func TestListTrainers(t *testing.T) {
	repo, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE active OR NOT $1")).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows(trainerCols).
			AddRow(1, "Alex Kim", "Boxing", nil, true, time.Now()).
			AddRow(2, "Jo Park", "Yoga", 1, true, time.Now()))

	trainers, err := repo.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, trainers, 2)
	assert.Nil(t, trainers[0].MaxConcurrent)
}

func TestGetByIDForUpdate(t *testing.T) {
	repo, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM trainers WHERE id = $1 FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(trainerCols).AddRow(1, "Alex Kim", "Boxing", nil, true, time.Now()))

	tr, err := repo.GetByIDForUpdate(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, tr.Active)

	mock.ExpectQuery(regexp.QuoteMeta("FROM trainers WHERE id = $1")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows(trainerCols))

	_, err = repo.GetByID(context.Background(), 9)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

package trainer

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"kickgym/internal/apperr"
	"kickgym/internal/db"
)

var ErrTrainerNotFound = apperr.NotFound("trainer not found")

const trainerColumns = `id, name, specialty, max_concurrent, active, created_at`

type SQLRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, req CreateTrainerRequest) (*Trainer, error) {
	t := &Trainer{}
	err := db.Conn(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO trainers (name, specialty, max_concurrent)
		VALUES ($1, $2, $3)
		RETURNING `+trainerColumns,
		req.Name, req.Specialty, req.MaxConcurrent,
	).StructScan(t)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *SQLRepository) List(ctx context.Context, onlyActive bool) ([]Trainer, error) {
	trainers := []Trainer{}
	err := db.Conn(ctx, r.db).SelectContext(ctx, &trainers, `
		SELECT `+trainerColumns+`
		FROM trainers
		WHERE active OR NOT $1
		ORDER BY name, id`,
		onlyActive,
	)
	if err != nil {
		return nil, err
	}
	return trainers, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int) (*Trainer, error) {
	return r.get(ctx, `SELECT `+trainerColumns+` FROM trainers WHERE id = $1`, id)
}

func (r *SQLRepository) GetByIDForUpdate(ctx context.Context, id int) (*Trainer, error) {
	return r.get(ctx, `SELECT `+trainerColumns+` FROM trainers WHERE id = $1 FOR UPDATE`, id)
}

func (r *SQLRepository) get(ctx context.Context, query string, id int) (*Trainer, error) {
	t := &Trainer{}
	err := db.Conn(ctx, r.db).GetContext(ctx, t, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTrainerNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

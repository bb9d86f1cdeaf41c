package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"kickgym/internal/apperr"
	"kickgym/internal/db"
)

var ErrUserNotFound = apperr.NotFound("member not found")

const userColumns = `id, name, email, password_hash, role, created_at`

type SQLRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, name, email, passwordHash, role string) (*User, error) {
	var u User
	err := db.Conn(ctx, r.db).GetContext(ctx, &u, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		name, normalizeEmail(email), passwordHash, role,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *SQLRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.find(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email))
}

func (r *SQLRepository) FindByID(ctx context.Context, id int) (*User, error) {
	return r.find(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *SQLRepository) find(ctx context.Context, query string, arg interface{}) (*User, error) {
	var u User
	err := db.Conn(ctx, r.db).GetContext(ctx, &u, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *SQLRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, normalizeEmail(email))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

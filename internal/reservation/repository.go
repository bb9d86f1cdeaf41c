package reservation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"kickgym/internal/apperr"
	"kickgym/internal/db"
)

var (
	ErrReservationNotFound = apperr.NotFound("reservation not found")

	errStatusChanged = errors.New("reservation status changed concurrently")
)

const reservationColumns = `id, member_id, trainer_id, starts_at, ends_at, status, rescheduled_from, cancelled_at, created_at, updated_at`

type SQLRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, memberID, trainerID int, startsAt, endsAt time.Time, rescheduledFrom *int) (*Reservation, error) {
	res := &Reservation{}
	err := db.Conn(ctx, r.db).GetContext(ctx, res, `
		INSERT INTO reservations (member_id, trainer_id, starts_at, ends_at, status, rescheduled_from)
		VALUES ($1, $2, $3, $4, 'confirmed', $5)
		RETURNING `+reservationColumns,
		memberID, trainerID, startsAt, endsAt, rescheduledFrom,
	)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int) (*Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
}

func (r *SQLRepository) GetForUpdate(ctx context.Context, id int) (*Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id)
}

func (r *SQLRepository) get(ctx context.Context, query string, id int) (*Reservation, error) {
	res := &Reservation{}
	err := db.Conn(ctx, r.db).GetContext(ctx, res, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *SQLRepository) CountOverlapping(ctx context.Context, trainerID int, startsAt, endsAt time.Time, excludeID int) (int, error) {
	var n int
	err := db.Conn(ctx, r.db).GetContext(ctx, &n, `
		SELECT COUNT(*)
		FROM reservations
		WHERE trainer_id = $1
		  AND status = 'confirmed'
		  AND starts_at < $3 AND ends_at > $2
		  AND id <> $4`,
		trainerID, startsAt, endsAt, excludeID,
	)
	return n, err
}

func (r *SQLRepository) MemberOverlaps(ctx context.Context, memberID int, startsAt, endsAt time.Time, excludeID int) (bool, error) {
	return db.Exists(ctx, r.db, `
		SELECT EXISTS(
			SELECT 1 FROM reservations
			WHERE member_id = $1
			  AND status = 'confirmed'
			  AND starts_at < $3 AND ends_at > $2
			  AND id <> $4
		)`,
		memberID, startsAt, endsAt, excludeID,
	)
}

func (r *SQLRepository) SetStatus(ctx context.Context, id int, from, to Status, at time.Time) (*Reservation, error) {
	var cancelledAt *time.Time
	if to == StatusCancelled {
		cancelledAt = &at
	}

	res := &Reservation{}
	err := db.Conn(ctx, r.db).GetContext(ctx, res, `
		UPDATE reservations
		SET status = $3, cancelled_at = COALESCE($4, cancelled_at), updated_at = $5
		WHERE id = $1 AND status = $2
		RETURNING `+reservationColumns,
		id, from, to, cancelledAt, at,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Conflict(errStatusChanged)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *SQLRepository) ListByMember(ctx context.Context, memberID, limit, offset int) ([]Reservation, error) {
	out := []Reservation{}
	err := db.Conn(ctx, r.db).SelectContext(ctx, &out, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE member_id = $1
		ORDER BY starts_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		memberID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

package event

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
	ErrEventNotFound        = apperr.NotFound("event not found")
	ErrRegistrationNotFound = apperr.NotFound("not registered for this event")

	errRegistrationChanged = errors.New("registration changed concurrently")
)

const (
	eventColumns        = `id, title, description, starts_at, capacity, created_at`
	registrationColumns = `id, event_id, member_id, status, created_at, updated_at`
)

type SQLRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, req CreateEventRequest) (*Event, error) {
	e := &Event{}
	err := db.Conn(ctx, r.db).GetContext(ctx, e, `
		INSERT INTO events (title, description, starts_at, capacity)
		VALUES ($1, $2, $3, $4)
		RETURNING `+eventColumns,
		req.Title, req.Description, req.StartsAt.UTC(), req.Capacity,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int) (*Event, error) {
	return r.get(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
}

func (r *SQLRepository) GetForUpdate(ctx context.Context, id int) (*Event, error) {
	return r.get(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id)
}

func (r *SQLRepository) get(ctx context.Context, query string, id int) (*Event, error) {
	e := &Event{}
	err := db.Conn(ctx, r.db).GetContext(ctx, e, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *SQLRepository) ListUpcoming(ctx context.Context, from time.Time) ([]EventWithSeats, error) {
	out := []EventWithSeats{}
	err := db.Conn(ctx, r.db).SelectContext(ctx, &out, `
		SELECT e.id, e.title, e.description, e.starts_at, e.capacity, e.created_at,
		       COUNT(er.id) FILTER (WHERE er.status = 'registered') AS registered
		FROM events e
		LEFT JOIN event_registrations er ON er.event_id = e.id
		WHERE e.starts_at >= $1
		GROUP BY e.id
		ORDER BY e.starts_at, e.id`,
		from,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLRepository) CountRegistered(ctx context.Context, eventID int) (int, error) {
	var n int
	err := db.Conn(ctx, r.db).GetContext(ctx, &n, `
		SELECT COUNT(*) FROM event_registrations
		WHERE event_id = $1 AND status = 'registered'`,
		eventID,
	)
	return n, err
}

// FindRegistration returns nil, nil when the member never registered.
func (r *SQLRepository) FindRegistration(ctx context.Context, eventID, memberID int) (*Registration, error) {
	reg := &Registration{}
	err := db.Conn(ctx, r.db).GetContext(ctx, reg, `
		SELECT `+registrationColumns+`
		FROM event_registrations
		WHERE event_id = $1 AND member_id = $2`,
		eventID, memberID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *SQLRepository) CreateRegistration(ctx context.Context, eventID, memberID int) (*Registration, error) {
	reg := &Registration{}
	err := db.Conn(ctx, r.db).GetContext(ctx, reg, `
		INSERT INTO event_registrations (event_id, member_id, status)
		VALUES ($1, $2, 'registered')
		RETURNING `+registrationColumns,
		eventID, memberID,
	)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *SQLRepository) SetRegistrationStatus(ctx context.Context, id int, from, to RegistrationStatus) (*Registration, error) {
	reg := &Registration{}
	err := db.Conn(ctx, r.db).GetContext(ctx, reg, `
		UPDATE event_registrations
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+registrationColumns,
		id, from, to,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Conflict(errRegistrationChanged)
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}

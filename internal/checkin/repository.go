package checkin

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
	ErrMemberNotFound = apperr.NotFound("no member with that number or badge")

	errAlreadyClosed = errors.New("check-in session was closed concurrently")
)

const sessionColumns = `id, member_id, checked_in_at, checked_out_at, method`

type SQLRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) ResolveMember(ctx context.Context, identifier string) (*Member, error) {
	m := &Member{}
	err := db.Conn(ctx, r.db).GetContext(ctx, m, `
		SELECT a.member_id, u.name, a.member_number, a.status
		FROM membership_accounts a
		JOIN users u ON u.id = a.member_id
		WHERE a.member_number = $1 OR a.badge_code = $1`,
		identifier,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// LockMember serializes toggles for one member until the transaction ends,
// including the case where no session row exists yet to lock.
func (r *SQLRepository) LockMember(ctx context.Context, memberID int) error {
	return db.AdvisoryXactLock(ctx, db.LockCheckIn, memberID)
}

func (r *SQLRepository) FindOpenForUpdate(ctx context.Context, memberID int) (*Session, error) {
	s := &Session{}
	err := db.Conn(ctx, r.db).GetContext(ctx, s, `
		SELECT `+sessionColumns+`
		FROM checkin_sessions
		WHERE member_id = $1 AND checked_out_at IS NULL
		ORDER BY checked_in_at DESC
		LIMIT 1
		FOR UPDATE`,
		memberID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SQLRepository) Open(ctx context.Context, memberID int, method Method, at time.Time) (*Session, error) {
	s := &Session{}
	err := db.Conn(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO checkin_sessions (member_id, checked_in_at, method)
		VALUES ($1, $2, $3)
		RETURNING `+sessionColumns,
		memberID, at, method,
	).StructScan(s)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close sets the checkout time only if the session is still open.
func (r *SQLRepository) Close(ctx context.Context, sessionID int, at time.Time) (*Session, error) {
	s := &Session{}
	err := db.Conn(ctx, r.db).QueryRowxContext(ctx, `
		UPDATE checkin_sessions
		SET checked_out_at = $2
		WHERE id = $1 AND checked_out_at IS NULL
		RETURNING `+sessionColumns,
		sessionID, at,
	).StructScan(s)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Conflict(errAlreadyClosed)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SQLRepository) ListOpen(ctx context.Context) ([]OpenSession, error) {
	sessions := []OpenSession{}
	err := db.Conn(ctx, r.db).SelectContext(ctx, &sessions, `
		SELECT s.id, s.member_id, s.checked_in_at, s.checked_out_at, s.method,
		       u.name AS member_name, a.member_number
		FROM checkin_sessions s
		JOIN users u ON u.id = s.member_id
		JOIN membership_accounts a ON a.member_id = s.member_id
		WHERE s.checked_out_at IS NULL
		ORDER BY s.checked_in_at`)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

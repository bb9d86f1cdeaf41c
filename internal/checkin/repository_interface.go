package checkin

import (
	"context"
	"time"
)

type Repository interface {
	// ResolveMember finds a member by member number or badge code.
	ResolveMember(ctx context.Context, identifier string) (*Member, error)
	LockMember(ctx context.Context, memberID int) error
	// FindOpenForUpdate returns the member's open session, or nil when there is none.
	FindOpenForUpdate(ctx context.Context, memberID int) (*Session, error)
	Open(ctx context.Context, memberID int, method Method, at time.Time) (*Session, error)
	Close(ctx context.Context, sessionID int, at time.Time) (*Session, error)
	ListOpen(ctx context.Context) ([]OpenSession, error)
}

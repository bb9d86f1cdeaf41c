package reservation

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, memberID, trainerID int, startsAt, endsAt time.Time, rescheduledFrom *int) (*Reservation, error)
	GetByID(ctx context.Context, id int) (*Reservation, error)
	GetForUpdate(ctx context.Context, id int) (*Reservation, error)
	// CountOverlapping counts the trainer's confirmed reservations that
	// intersect [startsAt, endsAt), ignoring excludeID.
	CountOverlapping(ctx context.Context, trainerID int, startsAt, endsAt time.Time, excludeID int) (int, error)
	MemberOverlaps(ctx context.Context, memberID int, startsAt, endsAt time.Time, excludeID int) (bool, error)
	// SetStatus moves a reservation from one status to another and fails
	// with a conflict when it is no longer in from.
	SetStatus(ctx context.Context, id int, from, to Status, at time.Time) (*Reservation, error)
	ListByMember(ctx context.Context, memberID, limit, offset int) ([]Reservation, error)
	StatsByDay(ctx context.Context, from, to time.Time, tz string) ([]StatsByDay, error)
	StatsByTrainer(ctx context.Context, from, to time.Time) ([]StatsByTrainer, error)
}

package event

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, req CreateEventRequest) (*Event, error)
	GetByID(ctx context.Context, id int) (*Event, error)
	// GetForUpdate locks the event row, which owns the seat count.
	GetForUpdate(ctx context.Context, id int) (*Event, error)
	ListUpcoming(ctx context.Context, from time.Time) ([]EventWithSeats, error)
	CountRegistered(ctx context.Context, eventID int) (int, error)
	FindRegistration(ctx context.Context, eventID, memberID int) (*Registration, error)
	CreateRegistration(ctx context.Context, eventID, memberID int) (*Registration, error)
	SetRegistrationStatus(ctx context.Context, id int, from, to RegistrationStatus) (*Registration, error)
}

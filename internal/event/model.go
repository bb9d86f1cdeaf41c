package event

import "time"

// Event is a scheduled class or workshop. A nil Capacity means unlimited seats.
type Event struct {
	ID          int       `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	Capacity    *int      `db:"capacity" json:"capacity,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type EventWithSeats struct {
	Event
	Registered int  `db:"registered" json:"registered"`
	SeatsLeft  *int `db:"-" json:"seats_left,omitempty"`
}

type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationCancelled  RegistrationStatus = "cancelled"
)

// Registration is a member's seat on an event. There is at most one row per
// (event, member); unregistering flips it to cancelled.
type Registration struct {
	ID        int                `db:"id" json:"id"`
	EventID   int                `db:"event_id" json:"event_id"`
	MemberID  int                `db:"member_id" json:"member_id"`
	Status    RegistrationStatus `db:"status" json:"status"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt time.Time          `db:"updated_at" json:"updated_at"`
}

type CreateEventRequest struct {
	Title       string    `json:"title" validate:"required,max=200" example:"Saturday kettlebell workshop"`
	Description string    `json:"description" validate:"max=2000"`
	StartsAt    time.Time `json:"starts_at" validate:"required" example:"2026-11-07T10:00:00Z"`
	Capacity    *int      `json:"capacity,omitempty" validate:"omitempty,gte=1" example:"12"`
}

package reservation

import (
	"time"

	"kickgym/internal/apperr"
	"kickgym/internal/membership"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// Reservation is a booked training slot. Only confirmed reservations change
// status; every other status is final.
type Reservation struct {
	ID              int        `db:"id" json:"id"`
	MemberID        int        `db:"member_id" json:"member_id"`
	TrainerID       int        `db:"trainer_id" json:"trainer_id"`
	StartsAt        time.Time  `db:"starts_at" json:"starts_at"`
	EndsAt          time.Time  `db:"ends_at" json:"ends_at"`
	Status          Status     `db:"status" json:"status"`
	RescheduledFrom *int       `db:"rescheduled_from" json:"rescheduled_from,omitempty"`
	CancelledAt     *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

func (r Reservation) IsConfirmed() bool {
	return r.Status == StatusConfirmed
}

// BookRequest carries a slot in the gym's wall-clock time.
type BookRequest struct {
	TrainerID int    `json:"trainer_id" validate:"required,gt=0" example:"3"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02" example:"2026-11-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04" example:"18:00"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04" example:"19:00"`
	MemberID  *int   `json:"member_id,omitempty" validate:"omitempty,gt=0"`
}

// RescheduleRequest moves a reservation to a new slot. TrainerID defaults to
// the current trainer.
type RescheduleRequest struct {
	TrainerID *int   `json:"trainer_id,omitempty" validate:"omitempty,gt=0"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02" example:"2026-11-03"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04" example:"18:00"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04" example:"19:00"`
}

type BookingResponse struct {
	Reservation      Reservation        `json:"reservation"`
	RemainingCredits membership.Credits `json:"remaining_credits" swaggertype:"string" example:"3"`
}

type RescheduleResponse struct {
	Cancelled   Reservation `json:"cancelled"`
	Reservation Reservation `json:"reservation"`
}

// ParseSlot resolves a date and two clock times in loc to a UTC interval.
func ParseSlot(loc *time.Location, date, start, end string) (time.Time, time.Time, error) {
	startsAt, err := time.ParseInLocation("2006-01-02 15:04", date+" "+start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.InvalidArgument("invalid date or start_time")
	}
	endsAt, err := time.ParseInLocation("2006-01-02 15:04", date+" "+end, loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.InvalidArgument("invalid date or end_time")
	}
	if !endsAt.After(startsAt) {
		return time.Time{}, time.Time{}, apperr.InvalidArgument("end_time must be after start_time")
	}
	return startsAt.UTC(), endsAt.UTC(), nil
}

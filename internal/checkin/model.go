package checkin

import (
	"time"

	"kickgym/internal/membership"
)

type Method string

const (
	MethodQR     Method = "qr"
	MethodManual Method = "manual"
)

func (m Method) Valid() bool {
	return m == MethodQR || m == MethodManual
}

type Action string

const (
	ActionCheckIn  Action = "checkin"
	ActionCheckOut Action = "checkout"
)

// Session is one physical visit. A nil CheckedOutAt means the member is on
// the premises.
type Session struct {
	ID           int        `db:"id" json:"id"`
	MemberID     int        `db:"member_id" json:"member_id"`
	CheckedInAt  time.Time  `db:"checked_in_at" json:"checked_in_at"`
	CheckedOutAt *time.Time `db:"checked_out_at" json:"checked_out_at"`
	Method       Method     `db:"method" json:"method"`
}

func (s Session) IsOpen() bool {
	return s.CheckedOutAt == nil
}

// Member is the slice of a member the front desk needs.
type Member struct {
	ID           int                      `db:"member_id"`
	Name         string                   `db:"name"`
	MemberNumber string                   `db:"member_number"`
	Status       membership.AccountStatus `db:"status"`
}

type OpenSession struct {
	Session
	MemberName   string `db:"member_name" json:"member_name"`
	MemberNumber string `db:"member_number" json:"member_number"`
}

type ToggleRequest struct {
	Identifier string `json:"identifier" validate:"required,max=64" example:"M000042"`
	Method     Method `json:"method" validate:"required,oneof=qr manual" example:"qr"`
}

type ToggleResult struct {
	Action       Action    `json:"action" example:"checkin"`
	MemberName   string    `json:"member_name" example:"Dana Fox"`
	MemberNumber string    `json:"member_number" example:"M000042"`
	Timestamp    time.Time `json:"timestamp"`
	Session      Session   `json:"session"`
}

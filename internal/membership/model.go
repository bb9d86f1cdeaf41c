package membership

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Credits is a session-credit balance. Unlimited marks an account whose plan
// has no finite session cap; it is stored as -1.
type Credits int

const Unlimited Credits = -1

func (c Credits) IsUnlimited() bool {
	return c == Unlimited
}

func (c Credits) String() string {
	if c.IsUnlimited() {
		return "unlimited"
	}
	return strconv.Itoa(int(c))
}

func (c Credits) MarshalJSON() ([]byte, error) {
	if c.IsUnlimited() {
		return []byte(`"unlimited"`), nil
	}
	return []byte(strconv.Itoa(int(c))), nil
}

func (c *Credits) UnmarshalJSON(data []byte) error {
	if string(data) == `"unlimited"` {
		*c = Unlimited
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("credits must be a non-negative integer or \"unlimited\": %w", err)
	}
	if n < 0 {
		return fmt.Errorf("credits must be a non-negative integer or \"unlimited\"")
	}
	*c = Credits(n)
	return nil
}

type PlanCategory string

const (
	CategoryMembership PlanCategory = "membership"
	CategoryPersonal   PlanCategory = "personal"
	CategoryTicket     PlanCategory = "ticket"
)

func (c PlanCategory) Valid() bool {
	switch c {
	case CategoryMembership, CategoryPersonal, CategoryTicket:
		return true
	}
	return false
}

// Plan is a purchasable catalog entry. A membership plan with a zero
// allotment grants unlimited sessions.
type Plan struct {
	ID               int             `db:"id" json:"id"`
	Name             string          `db:"name" json:"name"`
	Category         PlanCategory    `db:"category" json:"category"`
	MonthlyAllotment int             `db:"monthly_allotment" json:"monthly_allotment"`
	Price            decimal.Decimal `db:"price" json:"price"`
	Features         pq.StringArray  `db:"features" json:"features"`
	Active           bool            `db:"active" json:"active"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

func (p Plan) GrantsUnlimited() bool {
	return p.Category == CategoryMembership && p.MonthlyAllotment == 0
}

type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
	StatusCancelled AccountStatus = "cancelled"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an account may move from s to next.
// Cancelled is terminal.
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	switch s {
	case StatusActive:
		return next == StatusSuspended || next == StatusCancelled
	case StatusSuspended:
		return next == StatusActive || next == StatusCancelled
	default:
		return false
	}
}

// Account is the membership account of one member; MemberID is the user id.
type Account struct {
	MemberID         int           `db:"member_id" json:"member_id"`
	MemberNumber     string        `db:"member_number" json:"member_number"`
	BadgeCode        string        `db:"badge_code" json:"badge_code"`
	Status           AccountStatus `db:"status" json:"status"`
	PlanID           *int          `db:"plan_id" json:"plan_id,omitempty"`
	RemainingCredits Credits       `db:"remaining_credits" json:"remaining_credits"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

func (a Account) IsActive() bool {
	return a.Status == StatusActive
}

type EntryReason string

const (
	ReasonPlanPurchase EntryReason = "plan_purchase"
	ReasonBooking      EntryReason = "booking"
	ReasonCancellation EntryReason = "cancellation"
)

// CreditEntry is one row of the append-only credit history.
type CreditEntry struct {
	ID            int         `db:"id" json:"id"`
	MemberID      int         `db:"member_id" json:"member_id"`
	Delta         int         `db:"delta" json:"delta"`
	BalanceAfter  Credits     `db:"balance_after" json:"balance_after"`
	Reason        EntryReason `db:"reason" json:"reason"`
	PlanID        *int        `db:"plan_id" json:"plan_id,omitempty"`
	ReservationID *int        `db:"reservation_id" json:"reservation_id,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}

type CreatePlanRequest struct {
	Name             string          `json:"name" validate:"required,max=120"`
	Category         PlanCategory    `json:"category" validate:"required,oneof=membership personal ticket"`
	MonthlyAllotment int             `json:"monthly_allotment" validate:"gte=0"`
	Price            decimal.Decimal `json:"price" swaggertype:"string" example:"49.90"`
	Features         []string        `json:"features" validate:"omitempty,dive,required,max=200"`
}

type PurchasePlanRequest struct {
	MemberID *int `json:"member_id,omitempty" validate:"omitempty,gt=0"`
}

type UpdateStatusRequest struct {
	Status AccountStatus `json:"status" validate:"required,oneof=active suspended cancelled"`
}

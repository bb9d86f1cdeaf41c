package trainer

import "time"

// Trainer is a bookable coach. MaxConcurrent caps how many confirmed
// reservations may overlap for this trainer; nil leaves it uncapped.
type Trainer struct {
	ID            int       `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Specialty     string    `db:"specialty" json:"specialty"`
	MaxConcurrent *int      `db:"max_concurrent" json:"max_concurrent,omitempty"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type CreateTrainerRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	Specialty     string `json:"specialty" validate:"max=120"`
	MaxConcurrent *int   `json:"max_concurrent,omitempty" validate:"omitempty,gte=1"`
}

package user

import (
	"time"

	"kickgym/internal/auth"
	"kickgym/internal/membership"
)

type User struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         auth.Role `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

func (u User) Identity() auth.Identity {
	return auth.Identity{MemberID: u.ID, Email: u.Email, Role: u.Role}
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=120" example:"Dana Fox"`
	Email    string `json:"email" validate:"required,email" example:"dana@example.com"`
	Password string `json:"password" validate:"required,min=8,max=72" example:"correct-horse"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token,omitempty"`
	User         User                `json:"user"`
	Account      *membership.Account `json:"account,omitempty"`
}

type ProfileResponse struct {
	User    User                `json:"user"`
	Account *membership.Account `json:"account"`
}

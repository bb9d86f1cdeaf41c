package user

import (
	"context"
	"errors"

	"kickgym/internal/apperr"
	"kickgym/internal/auth"
	"kickgym/internal/db"
	"kickgym/internal/logger"
	"kickgym/internal/membership"
)

var (
	ErrEmailExists        = apperr.AlreadyRegistered("email already registered")
	ErrInvalidCredentials = apperr.Unauthenticated("invalid email or password")
)

// Accounts is the part of the membership ledger registration needs.
type Accounts interface {
	OpenAccount(ctx context.Context, memberID int) (*membership.Account, error)
	Account(ctx context.Context, memberID int) (*membership.Account, error)
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResponse, error)
	Profile(ctx context.Context, memberID int) (*ProfileResponse, error)
}

type service struct {
	repo      Repository
	accounts  Accounts
	tx        db.TxRunner
	jwtSecret string
}

func NewService(repo Repository, accounts Accounts, tx db.TxRunner, jwtSecret string) Service {
	return &service{
		repo:      repo,
		accounts:  accounts,
		tx:        tx,
		jwtSecret: jwtSecret,
	}
}

// Register creates the user and its zero-credit active membership account
// together.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var (
		u    *User
		acct *membership.Account
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exists, err := s.repo.EmailExists(ctx, req.Email)
		if err != nil {
			return err
		}
		if exists {
			return ErrEmailExists
		}

		u, err = s.repo.Create(ctx, req.Name, req.Email, passwordHash, string(auth.RoleMember))
		if err != nil {
			if db.IsUniqueViolation(err, "users_email_key") {
				return ErrEmailExists
			}
			return err
		}

		acct, err = s.accounts.OpenAccount(ctx, u.ID)
		return err
	})
	if err != nil {
		return nil, db.Wrap(err)
	}

	logger.Info("member registered", "member_id", u.ID, "member_number", acct.MemberNumber)
	return s.issue(u, acct)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, db.Wrap(err)
	}

	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(u, nil)
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*LoginResponse, error) {
	_, claims, err := auth.RefreshAccessToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, apperr.Unauthenticated("invalid or expired refresh token")
	}

	// Re-read the user so a role change since the token was issued takes effect.
	u, err := s.repo.FindByID(ctx, claims.MemberID)
	if err != nil {
		return nil, db.Wrap(err)
	}

	access, err := auth.GenerateAccessToken(u.ID, u.Email, u.Role, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{AccessToken: access, User: *u}, nil
}

func (s *service) Profile(ctx context.Context, memberID int) (*ProfileResponse, error) {
	u, err := s.repo.FindByID(ctx, memberID)
	if err != nil {
		return nil, db.Wrap(err)
	}

	acct, err := s.accounts.Account(ctx, memberID)
	if err != nil && !errors.Is(err, membership.ErrAccountNotFound) {
		return nil, err
	}
	return &ProfileResponse{User: *u, Account: acct}, nil
}

func (s *service) issue(u *User, acct *membership.Account) (*LoginResponse, error) {
	access, refresh, err := auth.GenerateTokens(u.ID, u.Email, u.Role, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         *u,
		Account:      acct,
	}, nil
}

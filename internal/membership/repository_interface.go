package membership

import "context"

type Repository interface {
	CreateAccount(ctx context.Context, memberID int, memberNumber, badgeCode string) (*Account, error)
	GetAccount(ctx context.Context, memberID int) (*Account, error)
	GetAccountForUpdate(ctx context.Context, memberID int) (*Account, error)
	UpdateBalance(ctx context.Context, memberID int, planID *int, credits Credits) error
	UpdateStatus(ctx context.Context, memberID int, status AccountStatus) error
	AddCreditEntry(ctx context.Context, entry CreditEntry) error
	ListCreditEntries(ctx context.Context, memberID, limit, offset int) ([]CreditEntry, error)

	CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error)
	GetPlan(ctx context.Context, id int) (*Plan, error)
	ListPlans(ctx context.Context, includeInactive bool) ([]Plan, error)
}

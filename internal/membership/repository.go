package membership

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"kickgym/internal/apperr"
	"kickgym/internal/db"
)

var (
	ErrAccountNotFound = apperr.NotFound("membership account not found")
	ErrPlanNotFound    = apperr.NotFound("plan not found")
)

const accountColumns = `member_id, member_number, badge_code, status, plan_id, remaining_credits, created_at, updated_at`

const planColumns = `id, name, category, monthly_allotment, price, features, active, created_at`

type SQLRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) CreateAccount(ctx context.Context, memberID int, memberNumber, badgeCode string) (*Account, error) {
	a := &Account{}
	err := db.Conn(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO membership_accounts (member_id, member_number, badge_code, status, remaining_credits)
		VALUES ($1, $2, $3, 'active', 0)
		RETURNING `+accountColumns,
		memberID, memberNumber, badgeCode,
	).StructScan(a)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *SQLRepository) GetAccount(ctx context.Context, memberID int) (*Account, error) {
	return r.getAccount(ctx, `SELECT `+accountColumns+` FROM membership_accounts WHERE member_id = $1`, memberID)
}

// GetAccountForUpdate locks the account row until the surrounding transaction ends.
func (r *SQLRepository) GetAccountForUpdate(ctx context.Context, memberID int) (*Account, error) {
	return r.getAccount(ctx, `SELECT `+accountColumns+` FROM membership_accounts WHERE member_id = $1 FOR UPDATE`, memberID)
}

func (r *SQLRepository) getAccount(ctx context.Context, query string, memberID int) (*Account, error) {
	a := &Account{}
	err := db.Conn(ctx, r.db).GetContext(ctx, a, query, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *SQLRepository) UpdateBalance(ctx context.Context, memberID int, planID *int, credits Credits) error {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE membership_accounts
		SET plan_id = $1, remaining_credits = $2, updated_at = NOW()
		WHERE member_id = $3`,
		planID, int(credits), memberID,
	)
	if err != nil {
		return err
	}
	return requireOneRow(res, ErrAccountNotFound)
}

func (r *SQLRepository) UpdateStatus(ctx context.Context, memberID int, status AccountStatus) error {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE membership_accounts
		SET status = $1, updated_at = NOW()
		WHERE member_id = $2`,
		status, memberID,
	)
	if err != nil {
		return err
	}
	return requireOneRow(res, ErrAccountNotFound)
}

func (r *SQLRepository) AddCreditEntry(ctx context.Context, entry CreditEntry) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO credit_entries (member_id, delta, balance_after, reason, plan_id, reservation_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.MemberID, entry.Delta, int(entry.BalanceAfter), entry.Reason, entry.PlanID, entry.ReservationID,
	)
	return err
}

func (r *SQLRepository) ListCreditEntries(ctx context.Context, memberID, limit, offset int) ([]CreditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	entries := []CreditEntry{}
	err := db.Conn(ctx, r.db).SelectContext(ctx, &entries, `
		SELECT id, member_id, delta, balance_after, reason, plan_id, reservation_id, created_at
		FROM credit_entries
		WHERE member_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		memberID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *SQLRepository) CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error) {
	features := req.Features
	if features == nil {
		features = []string{}
	}

	p := &Plan{}
	err := db.Conn(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO plans (name, category, monthly_allotment, price, features, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING `+planColumns,
		req.Name, req.Category, req.MonthlyAllotment, req.Price, pq.StringArray(features),
	).StructScan(p)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *SQLRepository) GetPlan(ctx context.Context, id int) (*Plan, error) {
	p := &Plan{}
	err := db.Conn(ctx, r.db).GetContext(ctx, p, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *SQLRepository) ListPlans(ctx context.Context, includeInactive bool) ([]Plan, error) {
	plans := []Plan{}
	err := db.Conn(ctx, r.db).SelectContext(ctx, &plans, `
		SELECT `+planColumns+`
		FROM plans
		WHERE active OR $1
		ORDER BY category, price, id`,
		includeInactive,
	)
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func requireOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

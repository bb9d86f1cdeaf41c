package membership

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"kickgym/internal/apperr"
	"kickgym/internal/db"
	"kickgym/internal/logger"
	"kickgym/internal/metrics"
	"kickgym/internal/telemetry"
)

// Service owns every mutation of a member's session-credit balance. Callers
// that already run a transaction (reservations) join it.
type Service interface {
	OpenAccount(ctx context.Context, memberID int) (*Account, error)
	Account(ctx context.Context, memberID int) (*Account, error)
	PurchasePlan(ctx context.Context, memberID, planID int) (*Account, error)
	DebitForBooking(ctx context.Context, memberID, reservationID int) (*Account, error)
	CreditForCancellation(ctx context.Context, memberID, reservationID int) (*Account, error)
	// LockAccount holds the account row lock for the rest of the caller's
	// transaction without changing the balance.
	LockAccount(ctx context.Context, memberID int) (*Account, error)
	SetStatus(ctx context.Context, memberID int, status AccountStatus) (*Account, error)
	CreditHistory(ctx context.Context, memberID, limit, offset int) ([]CreditEntry, error)
	CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error)
	ListPlans(ctx context.Context, includeInactive bool) ([]Plan, error)
}

type service struct {
	repo Repository
	tx   db.TxRunner
}

func NewService(repo Repository, tx db.TxRunner) Service {
	return &service{repo: repo, tx: tx}
}

// MemberNumber is the human-facing number printed on membership cards.
func MemberNumber(memberID int) string {
	return fmt.Sprintf("M%06d", memberID)
}

func (s *service) OpenAccount(ctx context.Context, memberID int) (*Account, error) {
	a, err := s.repo.CreateAccount(ctx, memberID, MemberNumber(memberID), uuid.NewString())
	if err != nil {
		return nil, db.Wrap(err)
	}
	return a, nil
}

func (s *service) Account(ctx context.Context, memberID int) (*Account, error) {
	a, err := s.repo.GetAccount(ctx, memberID)
	if err != nil {
		return nil, db.Wrap(err)
	}
	return a, nil
}

func (s *service) PurchasePlan(ctx context.Context, memberID, planID int) (acct *Account, err error) {
	ctx, span := telemetry.StartSpan(ctx, "membership.purchase_plan", telemetry.MemberID(memberID))
	defer func() { telemetry.End(span, err) }()

	var plan *Plan
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		plan, err = s.repo.GetPlan(ctx, planID)
		if err != nil {
			return err
		}
		if !plan.Active {
			return apperr.InvalidState("plan is no longer offered")
		}

		acct, err = s.repo.GetAccountForUpdate(ctx, memberID)
		if err != nil {
			return err
		}
		if acct.Status == StatusCancelled {
			return apperr.InvalidState("membership account is cancelled")
		}

		before := acct.RemainingCredits
		acct.RemainingCredits = ApplyPlanPurchase(before, *plan)
		acct.PlanID = &plan.ID

		if err := s.repo.UpdateBalance(ctx, memberID, acct.PlanID, acct.RemainingCredits); err != nil {
			return err
		}
		return s.repo.AddCreditEntry(ctx, CreditEntry{
			MemberID:     memberID,
			Delta:        Delta(before, acct.RemainingCredits),
			BalanceAfter: acct.RemainingCredits,
			Reason:       ReasonPlanPurchase,
			PlanID:       &plan.ID,
		})
	})
	if err != nil {
		err = db.Wrap(err)
		metrics.RecordCoreError("purchase_plan", string(apperr.KindOf(err)))
		return nil, err
	}

	metrics.RecordPlanPurchase(string(plan.Category))
	metrics.RecordCreditMovement(string(ReasonPlanPurchase))
	logger.Info("plan purchased", "member_id", memberID, "plan_id", planID, "category", plan.Category, "balance", acct.RemainingCredits.String())
	return acct, nil
}

// DebitForBooking takes one credit from an active account for reservationID.
// It must run inside the transaction that creates the reservation so a failed
// debit leaves no reservation behind.
func (s *service) DebitForBooking(ctx context.Context, memberID, reservationID int) (*Account, error) {
	return s.move(ctx, memberID, reservationID, ReasonBooking, func(a *Account) error {
		if !a.IsActive() {
			return apperr.InvalidState(fmt.Sprintf("membership account is %s", a.Status))
		}
		next, err := Debit(a.RemainingCredits)
		if err != nil {
			return err
		}
		a.RemainingCredits = next
		return nil
	})
}

// CreditForCancellation returns the credit taken for a confirmed reservation.
func (s *service) CreditForCancellation(ctx context.Context, memberID, reservationID int) (*Account, error) {
	return s.move(ctx, memberID, reservationID, ReasonCancellation, func(a *Account) error {
		a.RemainingCredits = Credit(a.RemainingCredits)
		return nil
	})
}

func (s *service) LockAccount(ctx context.Context, memberID int) (*Account, error) {
	var acct *Account
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		acct, err = s.repo.GetAccountForUpdate(ctx, memberID)
		return err
	})
	if err != nil {
		return nil, db.Wrap(err)
	}
	return acct, nil
}

func (s *service) move(ctx context.Context, memberID, reservationID int, reason EntryReason, apply func(*Account) error) (*Account, error) {
	var acct *Account
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		acct, err = s.repo.GetAccountForUpdate(ctx, memberID)
		if err != nil {
			return err
		}

		before := acct.RemainingCredits
		if err := apply(acct); err != nil {
			return err
		}
		if before.IsUnlimited() {
			return nil
		}

		if err := s.repo.UpdateBalance(ctx, memberID, acct.PlanID, acct.RemainingCredits); err != nil {
			return err
		}
		return s.repo.AddCreditEntry(ctx, CreditEntry{
			MemberID:      memberID,
			Delta:         Delta(before, acct.RemainingCredits),
			BalanceAfter:  acct.RemainingCredits,
			Reason:        reason,
			ReservationID: &reservationID,
		})
	})
	if err != nil {
		return nil, db.Wrap(err)
	}

	// Inside a caller's transaction the caller records the movement once it
	// commits.
	if !db.InTx(ctx) && !acct.RemainingCredits.IsUnlimited() {
		metrics.RecordCreditMovement(string(reason))
	}
	return acct, nil
}

func (s *service) SetStatus(ctx context.Context, memberID int, status AccountStatus) (*Account, error) {
	if !status.Valid() {
		return nil, apperr.InvalidArgument("unknown account status")
	}

	var acct *Account
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		acct, err = s.repo.GetAccountForUpdate(ctx, memberID)
		if err != nil {
			return err
		}
		if !acct.Status.CanTransitionTo(status) {
			return apperr.InvalidState(fmt.Sprintf("cannot change account status from %s to %s", acct.Status, status))
		}
		if err := s.repo.UpdateStatus(ctx, memberID, status); err != nil {
			return err
		}
		acct.Status = status
		return nil
	})
	if err != nil {
		return nil, db.Wrap(err)
	}

	logger.Info("membership status changed", "member_id", memberID, "status", status)
	return acct, nil
}

func (s *service) CreditHistory(ctx context.Context, memberID, limit, offset int) ([]CreditEntry, error) {
	entries, err := s.repo.ListCreditEntries(ctx, memberID, limit, offset)
	if err != nil {
		return nil, db.Wrap(err)
	}
	return entries, nil
}

func (s *service) CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error) {
	if err := ValidatePlan(req); err != nil {
		return nil, err
	}
	p, err := s.repo.CreatePlan(ctx, req)
	if err != nil {
		return nil, db.Wrap(err)
	}
	logger.Info("plan created", "plan_id", p.ID, "category", p.Category, "allotment", p.MonthlyAllotment)
	return p, nil
}

func (s *service) ListPlans(ctx context.Context, includeInactive bool) ([]Plan, error) {
	plans, err := s.repo.ListPlans(ctx, includeInactive)
	if err != nil {
		return nil, db.Wrap(err)
	}
	return plans, nil
}

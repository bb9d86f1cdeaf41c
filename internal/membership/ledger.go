package membership

import (
	"kickgym/internal/apperr"
)

// ApplyPlanPurchase returns the balance an account holds after buying plan.
//
//   - membership resets the balance to the allotment, or to Unlimited when the
//     allotment is zero
//   - ticket adds the allotment
//   - personal adds the allotment when it is positive
//
// Top-ups leave an Unlimited balance untouched.
func ApplyPlanPurchase(balance Credits, plan Plan) Credits {
	switch plan.Category {
	case CategoryMembership:
		if plan.GrantsUnlimited() {
			return Unlimited
		}
		return Credits(plan.MonthlyAllotment)
	case CategoryTicket, CategoryPersonal:
		if balance.IsUnlimited() || plan.MonthlyAllotment <= 0 {
			return balance
		}
		return balance + Credits(plan.MonthlyAllotment)
	}
	return balance
}

// Debit takes one session credit for a booking.
func Debit(balance Credits) (Credits, error) {
	if balance.IsUnlimited() {
		return balance, nil
	}
	if balance < 1 {
		return balance, apperr.InsufficientCredits("no session credits remaining")
	}
	return balance - 1, nil
}

// Credit returns one session credit after a confirmed reservation is cancelled.
func Credit(balance Credits) Credits {
	if balance.IsUnlimited() {
		return balance
	}
	return balance + 1
}

// Delta is the finite change between two balances; moves into or out of
// Unlimited count as zero.
func Delta(before, after Credits) int {
	if before.IsUnlimited() || after.IsUnlimited() {
		return 0
	}
	return int(after - before)
}

// ValidatePlan checks the rules a plan must satisfy before it is stored.
func ValidatePlan(req CreatePlanRequest) error {
	if !req.Category.Valid() {
		return apperr.InvalidArgument("category must be one of membership, personal, ticket")
	}
	if req.MonthlyAllotment < 0 {
		return apperr.InvalidArgument("monthly_allotment must not be negative")
	}
	if req.Category == CategoryTicket && req.MonthlyAllotment == 0 {
		return apperr.InvalidArgument("ticket plans must grant at least one session")
	}
	if req.Price.IsNegative() {
		return apperr.InvalidArgument("price must not be negative")
	}
	for _, f := range req.Features {
		if f == "" {
			return apperr.InvalidArgument("features must not contain empty entries")
		}
	}
	return nil
}

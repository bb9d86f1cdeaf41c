package membership

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kickgym/internal/apperr"
)

func TestApplyPlanPurchase(t *testing.T) {
	tests := []struct {
		name    string
		balance Credits
		plan    Plan
		want    Credits
	}{
		{"membership resets balance", 7, Plan{Category: CategoryMembership, MonthlyAllotment: 4}, 4},
		{"membership with zero allotment is unlimited", 3, Plan{Category: CategoryMembership}, Unlimited},
		{"membership replaces unlimited", Unlimited, Plan{Category: CategoryMembership, MonthlyAllotment: 8}, 8},
		{"ticket adds allotment", 2, Plan{Category: CategoryTicket, MonthlyAllotment: 10}, 12},
		{"ticket keeps unlimited", Unlimited, Plan{Category: CategoryTicket, MonthlyAllotment: 10}, Unlimited},
		{"personal adds positive allotment", 1, Plan{Category: CategoryPersonal, MonthlyAllotment: 4}, 5},
		{"personal with zero allotment is a no-op", 1, Plan{Category: CategoryPersonal}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyPlanPurchase(tt.balance, tt.plan))
		})
	}
}

func TestDebit(t *testing.T) {
	t.Run("finite balance", func(t *testing.T) {
		got, err := Debit(3)
		require.NoError(t, err)
		assert.Equal(t, Credits(2), got)
	})

	t.Run("last credit", func(t *testing.T) {
		got, err := Debit(1)
		require.NoError(t, err)
		assert.Equal(t, Credits(0), got)
	})

	t.Run("empty balance", func(t *testing.T) {
		got, err := Debit(0)
		assert.Equal(t, apperr.KindInsufficientCredits, apperr.KindOf(err))
		assert.Equal(t, Credits(0), got)
	})

	t.Run("unlimited never decrements", func(t *testing.T) {
		got, err := Debit(Unlimited)
		require.NoError(t, err)
		assert.Equal(t, Unlimited, got)
	})
}

func TestDebitThenCreditRestoresBalance(t *testing.T) {
	for _, start := range []Credits{1, 3, 40, Unlimited} {
		after, err := Debit(start)
		require.NoError(t, err)
		assert.Equal(t, start, Credit(after), start.String())
	}
}

func TestDelta(t *testing.T) {
	assert.Equal(t, -1, Delta(3, 2))
	assert.Equal(t, 10, Delta(2, 12))
	assert.Equal(t, 0, Delta(Unlimited, 4))
	assert.Equal(t, 0, Delta(4, Unlimited))
}

func TestValidatePlan(t *testing.T) {
	valid := CreatePlanRequest{Name: "Monthly", Category: CategoryMembership, MonthlyAllotment: 8, Price: decimal.RequireFromString("49.90")}
	require.NoError(t, ValidatePlan(valid))

	unlimited := valid
	unlimited.MonthlyAllotment = 0
	require.NoError(t, ValidatePlan(unlimited))

	tests := []struct {
		name   string
		mutate func(r *CreatePlanRequest)
	}{
		{"unknown category", func(r *CreatePlanRequest) { r.Category = "family" }},
		{"negative allotment", func(r *CreatePlanRequest) { r.MonthlyAllotment = -1 }},
		{"ticket without sessions", func(r *CreatePlanRequest) { r.Category = CategoryTicket; r.MonthlyAllotment = 0 }},
		{"negative price", func(r *CreatePlanRequest) { r.Price = decimal.NewFromInt(-1) }},
		{"empty feature", func(r *CreatePlanRequest) { r.Features = []string{"Sauna", ""} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := ValidatePlan(req)
			assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
		})
	}
}

func TestCreditsJSON(t *testing.T) {
	out, err := json.Marshal(Account{RemainingCredits: Unlimited})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"remaining_credits":"unlimited"`)

	out, err = json.Marshal(Account{RemainingCredits: 5})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"remaining_credits":5`)

	var c Credits
	require.NoError(t, json.Unmarshal([]byte(`"unlimited"`), &c))
	assert.True(t, c.IsUnlimited())
	assert.Error(t, json.Unmarshal([]byte(`-3`), &c))
}

func TestAccountStatusTransitions(t *testing.T) {
	assert.True(t, StatusActive.CanTransitionTo(StatusSuspended))
	assert.True(t, StatusSuspended.CanTransitionTo(StatusActive))
	assert.True(t, StatusSuspended.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusActive.CanTransitionTo(StatusActive))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusActive))
}

package integration_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"kickgym/internal/db"
	"kickgym/internal/membership"
	"kickgym/internal/user"
)

// setupTestDB connects to TEST_DATABASE_URL, migrates it and empties every
// table. Tests are skipped when the variable is unset.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	database, err := db.Connect(dsn)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrations(database, "../migrations"))
	cleanDatabase(t, database)
	return database
}

func cleanDatabase(t *testing.T, database *sqlx.DB) {
	tables := []string{
		"event_registrations",
		"events",
		"checkin_sessions",
		"credit_entries",
		"reservations",
		"trainers",
		"membership_accounts",
		"plans",
		"users",
	}
	for _, table := range tables {
		_, err := database.Exec(fmt.Sprintf("TRUNCATE %s RESTART IDENTITY CASCADE", table))
		require.NoError(t, err, "Failed to clean table "+table)
	}
}

type services struct {
	tx         *db.TxManager
	membership membership.Service
	users      user.Service
	userRepo   *user.SQLRepository
}

func newServices(database *sqlx.DB) services {
	tx := db.NewTxManager(database)
	ms := membership.NewService(membership.NewRepository(database), tx)
	userRepo := user.NewRepository(database)
	return services{
		tx:         tx,
		membership: ms,
		users:      user.NewService(userRepo, ms, tx, "integration-secret"),
		userRepo:   userRepo,
	}
}

// registerMember creates a user with an active zero-credit account.
func registerMember(t *testing.T, s services, email string) *membership.Account {
	t.Helper()
	resp, err := s.users.Register(context.Background(), user.RegisterRequest{
		Name:     "Member " + email,
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Account)
	return resp.Account
}

// giveCredits sells the member a ticket plan worth n credits.
func giveCredits(t *testing.T, s services, memberID, n int) {
	t.Helper()
	ctx := context.Background()
	plan, err := s.membership.CreatePlan(ctx, membership.CreatePlanRequest{
		Name:             fmt.Sprintf("%d sessions", n),
		Category:         membership.CategoryTicket,
		MonthlyAllotment: n,
	})
	require.NoError(t, err)
	_, err = s.membership.PurchasePlan(ctx, memberID, plan.ID)
	require.NoError(t, err)
}

type nopNotifier struct{}

func (nopNotifier) SendReservationConfirmation(context.Context, string, string, string, time.Time) error {
	return nil
}

func (nopNotifier) SendReservationCancellation(context.Context, string, string, string, time.Time) error {
	return nil
}

func (nopNotifier) SendReservationRescheduled(context.Context, string, string, string, time.Time, time.Time) error {
	return nil
}

func (nopNotifier) SendEventRegistration(context.Context, string, string, string, time.Time) error {
	return nil
}

package integration_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kickgym/internal/apperr"
	"kickgym/internal/broker"
	"kickgym/internal/checkin"
)

func TestCheckinToggle_AlternatesAgainstPostgres(t *testing.T) {
	database := setupTestDB(t)
	s := newServices(database)
	acct := registerMember(t, s, "toggle@example.com")

	svc := checkin.NewService(checkin.NewRepository(database), s.tx, broker.NopPublisher{})
	ctx := context.Background()

	first, err := svc.Toggle(ctx, acct.MemberNumber, checkin.MethodManual)
	require.NoError(t, err)
	assert.Equal(t, checkin.ActionCheckIn, first.Action)

	open, err := svc.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	second, err := svc.Toggle(ctx, acct.BadgeCode, checkin.MethodQR)
	require.NoError(t, err)
	assert.Equal(t, checkin.ActionCheckOut, second.Action)

	open, err = svc.ListOpen(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	var closed int
	require.NoError(t, database.Get(&closed,
		`SELECT COUNT(*) FROM checkin_sessions WHERE member_id = $1 AND checked_out_at IS NOT NULL`, acct.MemberID))
	assert.Equal(t, 1, closed)
}

func TestCheckinToggle_ConcurrentKeepsAtMostOneOpenSession(t *testing.T) {
	database := setupTestDB(t)
	s := newServices(database)
	acct := registerMember(t, s, "racer@example.com")

	svc := checkin.NewService(checkin.NewRepository(database), s.tx, broker.NopPublisher{})

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := apperr.RetryConflict(func() (*checkin.ToggleResult, error) {
				return svc.Toggle(context.Background(), acct.MemberNumber, checkin.MethodQR)
			})
			if err != nil {
				assert.True(t, apperr.Is(err, apperr.KindConflict), "unexpected error: %v", err)
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	var open int
	require.NoError(t, database.Get(&open,
		`SELECT COUNT(*) FROM checkin_sessions WHERE member_id = $1 AND checked_out_at IS NULL`, acct.MemberID))
	assert.LessOrEqual(t, open, 1)
	assert.Equal(t, succeeded%2, open, "every successful toggle flips the state exactly once")
}

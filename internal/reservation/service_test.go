package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kickgym/internal/apperr"
	"kickgym/internal/auth"
	"kickgym/internal/membership"
	"kickgym/internal/trainer"
	"kickgym/internal/user"
)

// store is an in-memory database for the scheduler: reservations, trainers
// and credit balances. RunInTx serializes units of work and rolls every table
// back when fn fails.
type store struct {
	mu           sync.Mutex
	reservations []Reservation
	trainers     map[int]trainer.Trainer
	balances     map[int]membership.Credits
	suspended    map[int]bool
	// accountLocked tracks account row locks held by the running transaction.
	accountLocked map[int]bool
}

func newStore() *store {
	return &store{
		trainers:  map[int]trainer.Trainer{},
		balances:  map[int]membership.Credits{},
		suspended: map[int]bool{},
	}
}

var errOverlapUnlocked = errors.New("member overlap checked without the account lock")

func (s *store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservations := append([]Reservation(nil), s.reservations...)
	balances := make(map[int]membership.Credits, len(s.balances))
	for k, v := range s.balances {
		balances[k] = v
	}

	s.accountLocked = map[int]bool{}
	defer func() { s.accountLocked = nil }()

	if err := fn(ctx); err != nil {
		s.reservations, s.balances = reservations, balances
		return err
	}
	return nil
}

func (s *store) Create(_ context.Context, memberID, trainerID int, startsAt, endsAt time.Time, rescheduledFrom *int) (*Reservation, error) {
	r := Reservation{
		ID:              len(s.reservations) + 1,
		MemberID:        memberID,
		TrainerID:       trainerID,
		StartsAt:        startsAt,
		EndsAt:          endsAt,
		Status:          StatusConfirmed,
		RescheduledFrom: rescheduledFrom,
	}
	s.reservations = append(s.reservations, r)
	return &r, nil
}

func (s *store) GetByID(_ context.Context, id int) (*Reservation, error) {
	if id < 1 || id > len(s.reservations) {
		return nil, ErrReservationNotFound
	}
	r := s.reservations[id-1]
	return &r, nil
}

func (s *store) GetForUpdate(ctx context.Context, id int) (*Reservation, error) {
	return s.GetByID(ctx, id)
}

func (s *store) overlapping(match func(Reservation) bool, startsAt, endsAt time.Time, excludeID int) int {
	n := 0
	for _, r := range s.reservations {
		if r.ID != excludeID && r.IsConfirmed() && match(r) && r.StartsAt.Before(endsAt) && r.EndsAt.After(startsAt) {
			n++
		}
	}
	return n
}

func (s *store) CountOverlapping(_ context.Context, trainerID int, startsAt, endsAt time.Time, excludeID int) (int, error) {
	return s.overlapping(func(r Reservation) bool { return r.TrainerID == trainerID }, startsAt, endsAt, excludeID), nil
}

func (s *store) MemberOverlaps(_ context.Context, memberID int, startsAt, endsAt time.Time, excludeID int) (bool, error) {
	if !s.accountLocked[memberID] {
		return false, errOverlapUnlocked
	}
	return s.overlapping(func(r Reservation) bool { return r.MemberID == memberID }, startsAt, endsAt, excludeID) > 0, nil
}

func (s *store) SetStatus(_ context.Context, id int, from, to Status, at time.Time) (*Reservation, error) {
	r := &s.reservations[id-1]
	if r.Status != from {
		return nil, apperr.Conflict(errStatusChanged)
	}
	r.Status = to
	if to == StatusCancelled {
		r.CancelledAt = &at
	}
	out := *r
	return &out, nil
}

func (s *store) ListByMember(_ context.Context, memberID, limit, offset int) ([]Reservation, error) {
	var out []Reservation
	for _, r := range s.reservations {
		if r.MemberID == memberID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *store) StatsByDay(_ context.Context, from, to time.Time, tz string) ([]StatsByDay, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	out := []StatsByDay{}
	index := map[string]int{}
	for _, r := range s.reservations {
		if r.StartsAt.Before(from) || !r.StartsAt.Before(to) {
			continue
		}
		day := r.StartsAt.In(loc).Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			i = len(out)
			index[day] = i
			out = append(out, StatsByDay{Day: day})
		}
		out[i].Booked++
		switch r.Status {
		case StatusCancelled:
			out[i].Cancelled++
		case StatusCompleted:
			out[i].Completed++
		case StatusNoShow:
			out[i].NoShow++
		}
	}
	return out, nil
}

func (s *store) StatsByTrainer(_ context.Context, from, to time.Time) ([]StatsByTrainer, error) {
	out := []StatsByTrainer{}
	index := map[int]int{}
	for _, r := range s.reservations {
		if r.StartsAt.Before(from) || !r.StartsAt.Before(to) {
			continue
		}
		i, ok := index[r.TrainerID]
		if !ok {
			i = len(out)
			index[r.TrainerID] = i
			out = append(out, StatsByTrainer{TrainerID: r.TrainerID, TrainerName: s.trainers[r.TrainerID].Name})
		}
		out[i].Booked++
		switch r.Status {
		case StatusCancelled:
			out[i].Cancelled++
		case StatusNoShow:
			out[i].NoShow++
		}
	}
	return out, nil
}

// trainerStore satisfies trainer.Repository over the same store.
type trainerStore struct{ *store }

func (t trainerStore) Create(context.Context, trainer.CreateTrainerRequest) (*trainer.Trainer, error) {
	return nil, errors.New("not supported")
}

func (t trainerStore) List(context.Context, bool) ([]trainer.Trainer, error) { return nil, nil }

func (t trainerStore) GetByID(_ context.Context, id int) (*trainer.Trainer, error) {
	tr, ok := t.trainers[id]
	if !ok {
		return nil, trainer.ErrTrainerNotFound
	}
	return &tr, nil
}

func (t trainerStore) GetByIDForUpdate(ctx context.Context, id int) (*trainer.Trainer, error) {
	return t.GetByID(ctx, id)
}

// ledger applies the real balance rules to the store's balances.
type ledger struct{ *store }

func (l ledger) DebitForBooking(_ context.Context, memberID, _ int) (*membership.Account, error) {
	l.accountLocked[memberID] = true
	if l.suspended[memberID] {
		return nil, apperr.InvalidState("membership account is suspended")
	}
	next, err := membership.Debit(l.balances[memberID])
	if err != nil {
		return nil, err
	}
	l.balances[memberID] = next
	return &membership.Account{MemberID: memberID, RemainingCredits: next}, nil
}

func (l ledger) CreditForCancellation(_ context.Context, memberID, _ int) (*membership.Account, error) {
	l.accountLocked[memberID] = true
	next := membership.Credit(l.balances[memberID])
	l.balances[memberID] = next
	return &membership.Account{MemberID: memberID, RemainingCredits: next}, nil
}

func (l ledger) LockAccount(_ context.Context, memberID int) (*membership.Account, error) {
	l.accountLocked[memberID] = true
	return &membership.Account{MemberID: memberID, RemainingCredits: l.balances[memberID]}, nil
}

type contacts struct{}

func (contacts) FindByID(_ context.Context, id int) (*user.User, error) {
	return &user.User{ID: id, Name: "Dana Fox", Email: "dana@example.com"}, nil
}

type sentMail struct {
	kind    string
	to      string
	trainer string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *recordingNotifier) record(kind, to, trainerName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{kind, to, trainerName})
	return nil
}

func (n *recordingNotifier) SendReservationConfirmation(_ context.Context, to, _, trainerName string, _ time.Time) error {
	return n.record("confirmation", to, trainerName)
}

func (n *recordingNotifier) SendReservationCancellation(_ context.Context, to, _, trainerName string, _ time.Time) error {
	return n.record("cancellation", to, trainerName)
}

func (n *recordingNotifier) SendReservationRescheduled(_ context.Context, to, _, trainerName string, _, _ time.Time) error {
	return n.record("rescheduled", to, trainerName)
}

var (
	now   = time.Date(2026, 11, 1, 8, 0, 0, 0, time.UTC)
	dana  = auth.Identity{MemberID: 42, Role: auth.RoleMember}
	staff = auth.Identity{MemberID: 1, Role: auth.RoleStaff}
)

func intPtr(v int) *int { return &v }

func newTestService(t *testing.T) (*store, *recordingNotifier, *service) {
	t.Helper()
	st := newStore()
	st.trainers[3] = trainer.Trainer{ID: 3, Name: "Kim", Active: true}
	st.trainers[4] = trainer.Trainer{ID: 4, Name: "Lee", Active: true, MaxConcurrent: intPtr(1)}
	st.trainers[5] = trainer.Trainer{ID: 5, Name: "Ola", Active: false}

	n := &recordingNotifier{}
	svc := NewService(st, trainerStore{st}, ledger{st}, contacts{}, n, st, time.UTC).(*service)
	svc.now = func() time.Time { return now }
	return st, n, svc
}

func book(trainerID int, date, start, end string) BookRequest {
	return BookRequest{TrainerID: trainerID, Date: date, StartTime: start, EndTime: end}
}

func TestBookThenCancelRestoresBalance(t *testing.T) {
	st, n, svc := newTestService(t)
	ctx := context.Background()
	st.balances[42] = 3

	booked, err := svc.Book(ctx, dana, book(3, "2026-11-02", "18:00", "19:00"))
	require.NoError(t, err)
	assert.Equal(t, membership.Credits(2), booked.RemainingCredits)
	assert.Equal(t, StatusConfirmed, booked.Reservation.Status)
	assert.Equal(t, time.Date(2026, 11, 2, 18, 0, 0, 0, time.UTC), booked.Reservation.StartsAt)

	cancelled, err := svc.Cancel(ctx, dana, booked.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, membership.Credits(3), cancelled.RemainingCredits)
	assert.Equal(t, StatusCancelled, cancelled.Reservation.Status)
	assert.NotNil(t, cancelled.Reservation.CancelledAt)

	assert.Equal(t, []sentMail{
		{"confirmation", "dana@example.com", "Kim"},
		{"cancellation", "dana@example.com", "Kim"},
	}, n.sent)
}

func TestBookUnlimitedLeavesBalance(t *testing.T) {
	st, _, svc := newTestService(t)
	ctx := context.Background()
	st.balances[42] = membership.Unlimited

	booked, err := svc.Book(ctx, dana, book(3, "2026-11-02", "18:00", "19:00"))
	require.NoError(t, err)
	assert.True(t, booked.RemainingCredits.IsUnlimited())

	_, err = svc.Cancel(ctx, dana, booked.Reservation.ID)
	require.NoError(t, err)
	assert.True(t, st.balances[42].IsUnlimited())
}

func TestBookFailedDebitLeavesNoReservation(t *testing.T) {
	t.Run("no credits", func(t *testing.T) {
		st, n, svc := newTestService(t)
		st.balances[42] = 0

		_, err := svc.Book(context.Background(), dana, book(3, "2026-11-02", "18:00", "19:00"))
		assert.Equal(t, apperr.KindInsufficientCredits, apperr.KindOf(err))
		assert.Empty(t, st.reservations)
		assert.Equal(t, membership.Credits(0), st.balances[42])
		assert.Empty(t, n.sent)
	})

	t.Run("suspended account", func(t *testing.T) {
		st, _, svc := newTestService(t)
		st.balances[42] = 5
		st.suspended[42] = true

		_, err := svc.Book(context.Background(), dana, book(3, "2026-11-02", "18:00", "19:00"))
		assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
		assert.Empty(t, st.reservations)
		assert.Equal(t, membership.Credits(5), st.balances[42])
	})
}

func TestBookRejections(t *testing.T) {
	tests := []struct {
		name      string
		requester auth.Identity
		req       BookRequest
		want      apperr.Kind
	}{
		{"slot in the past", dana, book(3, "2026-10-31", "18:00", "19:00"), apperr.KindInvalidArgument},
		{"end before start", dana, book(3, "2026-11-02", "19:00", "18:00"), apperr.KindInvalidArgument},
		{"unknown trainer", dana, book(99, "2026-11-02", "18:00", "19:00"), apperr.KindNotFound},
		{"inactive trainer", dana, book(5, "2026-11-02", "18:00", "19:00"), apperr.KindInvalidState},
		{"member books for someone else", dana, BookRequest{TrainerID: 3, Date: "2026-11-02", StartTime: "18:00", EndTime: "19:00", MemberID: intPtr(43)}, apperr.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, _, svc := newTestService(t)
			st.balances[42] = 3

			_, err := svc.Book(context.Background(), tt.requester, tt.req)
			assert.Equal(t, tt.want, apperr.KindOf(err))
			assert.Equal(t, membership.Credits(3), st.balances[42])
		})
	}
}

func TestStaffBooksOnBehalf(t *testing.T) {
	st, _, svc := newTestService(t)
	st.balances[43] = 1

	resp, err := svc.Book(context.Background(), staff, BookRequest{TrainerID: 3, Date: "2026-11-02", StartTime: "18:00", EndTime: "19:00", MemberID: intPtr(43)})
	require.NoError(t, err)
	assert.Equal(t, 43, resp.Reservation.MemberID)
	assert.Equal(t, membership.Credits(0), st.balances[43])
}

func TestBookRejectsMemberOverlap(t *testing.T) {
	st, _, svc := newTestService(t)
	ctx := context.Background()
	st.balances[42] = 3

	_, err := svc.Book(ctx, dana, book(3, "2026-11-02", "18:00", "19:00"))
	require.NoError(t, err)

	_, err = svc.Book(ctx, dana, book(4, "2026-11-02", "18:30", "19:30"))
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	assert.Equal(t, membership.Credits(2), st.balances[42])
	assert.Len(t, st.reservations, 1)
}

func TestTrainerCapacity(t *testing.T) {
	st, _, svc := newTestService(t)
	ctx := context.Background()
	st.balances[42] = 3
	st.balances[43] = 3

	_, err := svc.Book(ctx, dana, book(4, "2026-11-02", "18:00", "19:00"))
	require.NoError(t, err)

	other := auth.Identity{MemberID: 43, Role: auth.RoleMember}
	_, err = svc.Book(ctx, other, book(4, "2026-11-02", "18:30", "19:30"))
	assert.Equal(t, apperr.KindCapacityExceeded, apperr.KindOf(err))
	assert.Equal(t, membership.Credits(3), st.balances[43])

	_, err = svc.Book(ctx, other, book(4, "2026-11-02", "19:00", "20:00"))
	assert.NoError(t, err, "adjacent slot does not overlap")
}

func TestConcurrentBookingsNeverExceedTrainerCapacity(t *testing.T) {
	st, _, svc := newTestService(t)
	const members = 20
	for i := 0; i < members; i++ {
		st.balances[100+i] = 1
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < members; i++ {
		wg.Add(1)
		go func(memberID int) {
			defer wg.Done()
			_, err := svc.Book(context.Background(), auth.Identity{MemberID: memberID, Role: auth.RoleMember}, book(4, "2026-11-02", "18:00", "19:00"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if apperr.KindOf(err) == apperr.KindCapacityExceeded {
				rejected++
			}
		}(100 + i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, members-1, rejected)

	spent := 0
	for i := 0; i < members; i++ {
		if st.balances[100+i] == 0 {
			spent++
		}
	}
	assert.Equal(t, 1, spent)
}

func TestCancelRules(t *testing.T) {
	ctx := context.Background()

	t.Run("only once", func(t *testing.T) {
		st, _, svc := newTestService(t)
		st.balances[42] = 3
		booked, err := svc.Book(ctx, dana, book(3, "2026-11-02", "18:00", "19:00"))
		require.NoError(t, err)
		_, err = svc.Cancel(ctx, dana, booked.Reservation.ID)
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, dana, booked.Reservation.ID)
		assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
		assert.Equal(t, membership.Credits(3), st.balances[42])
	})

	t.Run("completed reservation", func(t *testing.T) {
		st, _, svc := newTestService(t)
		st.balances[42] = 3
		booked, err := svc.Book(ctx, dana, book(3, "2026-11-02", "18:00", "19:00"))
		require.NoError(t, err)
		_, err = svc.Complete(ctx, booked.Reservation.ID)
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, dana, booked.Reservation.ID)
		assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
		assert.Equal(t, membership.Credits(2), st.balances[42])
	})

	t.Run("someone else's reservation", func(t *testing.T) {
		st, _, svc := newTestService(t)
		st.balances[42] = 3
		booked, err := svc.Book(ctx, dana, book(3, "2026-11-02", "18:00", "19:00"))
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, auth.Identity{MemberID: 43, Role: auth.RoleMember}, booked.Reservation.ID)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

		_, err = svc.Cancel(ctx, staff, booked.Reservation.ID)
		assert.NoError(t, err)
		assert.Equal(t, membership.Credits(3), st.balances[42])
	})

	t.Run("unknown reservation", func(t *testing.T) {
		_, _, svc := newTestService(t)
		_, err := svc.Cancel(ctx, dana, 77)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()

	t.Run("links replacement and keeps balance", func(t *testing.T) {
		st, n, svc := newTestService(t)
		st.balances[42] = 3
		booked, err := svc.Book(ctx, dana, book(3, "2026-11-02", "18:00", "19:00"))
		require.NoError(t, err)

		resp, err := svc.Reschedule(ctx, dana, booked.Reservation.ID, RescheduleRequest{
			TrainerID: intPtr(4), Date: "2026-11-03", StartTime: "07:00", EndTime: "08:00",
		})
		require.NoError(t, err)

		assert.Equal(t, StatusCancelled, resp.Cancelled.Status)
		assert.Equal(t, StatusConfirmed, resp.Reservation.Status)
		require.NotNil(t, resp.Reservation.RescheduledFrom)
		assert.Equal(t, booked.Reservation.ID, *resp.Reservation.RescheduledFrom)
		assert.Equal(t, 4, resp.Reservation.TrainerID)
		assert.Equal(t, membership.Credits(2), st.balances[42])
		assert.Len(t, st.reservations, 2)
		assert.Equal(t, sentMail{"rescheduled", "dana@example.com", "Lee"}, n.sent[len(n.sent)-1])
	})

	t.Run("overlapping another own reservation is rejected", func(t *testing.T) {
		st, _, svc := newTestService(t)
		st.balances[42] = 3
		_, err := svc.Book(ctx, dana, book(4, "2026-11-03", "07:00", "08:00"))
		require.NoError(t, err)
		booked, err := svc.Book(ctx, dana, book(3, "2026-11-02", "18:00", "19:00"))
		require.NoError(t, err)

		_, err = svc.Reschedule(ctx, dana, booked.Reservation.ID, RescheduleRequest{Date: "2026-11-03", StartTime: "07:30", EndTime: "08:30"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, errOverlapUnlocked)
		assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

		original, err := st.GetByID(ctx, booked.Reservation.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, original.Status)
		assert.Len(t, st.reservations, 2)
		assert.Equal(t, membership.Credits(1), st.balances[42])
	})

	t.Run("overlapping the original slot is allowed", func(t *testing.T) {
		st, _, svc := newTestService(t)
		st.balances[42] = 3
		booked, err := svc.Book(ctx, dana, book(4, "2026-11-02", "18:00", "19:00"))
		require.NoError(t, err)

		_, err = svc.Reschedule(ctx, dana, booked.Reservation.ID, RescheduleRequest{Date: "2026-11-02", StartTime: "18:30", EndTime: "19:30"})
		assert.NoError(t, err)
	})

	t.Run("full trainer leaves original untouched", func(t *testing.T) {
		st, _, svc := newTestService(t)
		st.balances[42] = 3
		st.balances[43] = 3
		_, err := svc.Book(ctx, auth.Identity{MemberID: 43, Role: auth.RoleMember}, book(4, "2026-11-03", "07:00", "08:00"))
		require.NoError(t, err)
		booked, err := svc.Book(ctx, dana, book(3, "2026-11-02", "18:00", "19:00"))
		require.NoError(t, err)

		_, err = svc.Reschedule(ctx, dana, booked.Reservation.ID, RescheduleRequest{TrainerID: intPtr(4), Date: "2026-11-03", StartTime: "07:00", EndTime: "08:00"})
		assert.Equal(t, apperr.KindCapacityExceeded, apperr.KindOf(err))

		original, err := st.GetByID(ctx, booked.Reservation.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, original.Status)
		assert.Len(t, st.reservations, 2)
	})

	t.Run("cancelled reservation", func(t *testing.T) {
		st, _, svc := newTestService(t)
		st.balances[42] = 3
		booked, err := svc.Book(ctx, dana, book(3, "2026-11-02", "18:00", "19:00"))
		require.NoError(t, err)
		_, err = svc.Cancel(ctx, dana, booked.Reservation.ID)
		require.NoError(t, err)

		_, err = svc.Reschedule(ctx, dana, booked.Reservation.ID, RescheduleRequest{Date: "2026-11-03", StartTime: "07:00", EndTime: "08:00"})
		assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	})
}

func TestMarkNoShowKeepsCredit(t *testing.T) {
	st, _, svc := newTestService(t)
	ctx := context.Background()
	st.balances[42] = 1

	booked, err := svc.Book(ctx, dana, book(3, "2026-11-02", "18:00", "19:00"))
	require.NoError(t, err)

	r, err := svc.MarkNoShow(ctx, booked.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, r.Status)
	assert.Equal(t, membership.Credits(0), st.balances[42])

	_, err = svc.Complete(ctx, booked.Reservation.ID)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestNotificationFailureDoesNotFailBooking(t *testing.T) {
	st, n, svc := newTestService(t)
	st.balances[42] = 1
	n.err = errors.New("redis down")

	_, err := svc.Book(context.Background(), dana, book(3, "2026-11-02", "18:00", "19:00"))
	assert.NoError(t, err)
	assert.Len(t, st.reservations, 1)
}

func TestParseSlotUsesGymTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	start, end, err := ParseSlot(loc, "2026-11-02", "18:00", "19:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 11, 2, 17, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 90*time.Minute, end.Sub(start))

	_, _, err = ParseSlot(loc, "2026-02-30", "18:00", "19:00")
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
}

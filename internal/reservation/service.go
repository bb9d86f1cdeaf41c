package reservation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"kickgym/internal/apperr"
	"kickgym/internal/auth"
	"kickgym/internal/capacity"
	"kickgym/internal/db"
	"kickgym/internal/logger"
	"kickgym/internal/membership"
	"kickgym/internal/metrics"
	"kickgym/internal/telemetry"
	"kickgym/internal/trainer"
	"kickgym/internal/user"
)

// Ledger moves session credits for reservations. Every call joins the
// caller's transaction and holds the account row lock until it ends.
type Ledger interface {
	DebitForBooking(ctx context.Context, memberID, reservationID int) (*membership.Account, error)
	CreditForCancellation(ctx context.Context, memberID, reservationID int) (*membership.Account, error)
	LockAccount(ctx context.Context, memberID int) (*membership.Account, error)
}

type Contacts interface {
	FindByID(ctx context.Context, id int) (*user.User, error)
}

type Notifier interface {
	SendReservationConfirmation(ctx context.Context, to, name, trainerName string, startsAt time.Time) error
	SendReservationCancellation(ctx context.Context, to, name, trainerName string, startsAt time.Time) error
	SendReservationRescheduled(ctx context.Context, to, name, trainerName string, from, startsAt time.Time) error
}

type Service interface {
	Book(ctx context.Context, requester auth.Identity, req BookRequest) (*BookingResponse, error)
	Cancel(ctx context.Context, requester auth.Identity, id int) (*BookingResponse, error)
	Reschedule(ctx context.Context, requester auth.Identity, id int, req RescheduleRequest) (*RescheduleResponse, error)
	Complete(ctx context.Context, id int) (*Reservation, error)
	MarkNoShow(ctx context.Context, id int) (*Reservation, error)
	List(ctx context.Context, memberID, limit, offset int) ([]Reservation, error)
	// Stats summarizes reservations starting in [from, to) per day and per trainer.
	Stats(ctx context.Context, from, to time.Time) (*StatsReport, error)
}

type service struct {
	repo     Repository
	trainers trainer.Repository
	ledger   Ledger
	contacts Contacts
	notifier Notifier
	tx       db.TxRunner
	loc      *time.Location
	now      func() time.Time
}

func NewService(
	repo Repository,
	trainers trainer.Repository,
	ledger Ledger,
	contacts Contacts,
	notifier Notifier,
	tx db.TxRunner,
	loc *time.Location,
) Service {
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		repo:     repo,
		trainers: trainers,
		ledger:   ledger,
		contacts: contacts,
		notifier: notifier,
		tx:       tx,
		loc:      loc,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) slot(date, start, end string) (time.Time, time.Time, error) {
	startsAt, endsAt, err := ParseSlot(s.loc, date, start, end)
	if err != nil {
		return startsAt, endsAt, err
	}
	if !startsAt.After(s.now()) {
		return startsAt, endsAt, apperr.InvalidArgument("cannot book a slot in the past")
	}
	return startsAt, endsAt, nil
}

// admitTrainer locks the trainer row and checks its slot capacity. The lock
// is held until commit, so count-then-insert cannot over-fill the trainer.
func (s *service) admitTrainer(ctx context.Context, trainerID int, startsAt, endsAt time.Time, excludeID int) (*trainer.Trainer, error) {
	t, err := s.trainers.GetByIDForUpdate(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, apperr.InvalidState("trainer is not taking reservations")
	}
	n, err := s.repo.CountOverlapping(ctx, trainerID, startsAt, endsAt, excludeID)
	if err != nil {
		return nil, err
	}
	if err := capacity.Admit(n, t.MaxConcurrent); err != nil {
		return nil, apperr.CapacityExceeded(fmt.Sprintf("%s has no free place in that slot", t.Name))
	}
	return t, nil
}

func (s *service) rejectMemberOverlap(ctx context.Context, r *Reservation) error {
	overlaps, err := s.repo.MemberOverlaps(ctx, r.MemberID, r.StartsAt, r.EndsAt, r.ID)
	if err != nil {
		return err
	}
	if overlaps {
		return apperr.InvalidState("member already has a reservation in that slot")
	}
	return nil
}

// Book debits one credit and creates a confirmed reservation in one
// transaction. Lock order: trainer, then account.
func (s *service) Book(ctx context.Context, requester auth.Identity, req BookRequest) (resp *BookingResponse, err error) {
	memberID := requester.MemberID
	if req.MemberID != nil {
		if !requester.CanActFor(*req.MemberID) {
			return nil, apperr.Forbidden("only staff may book for another member")
		}
		memberID = *req.MemberID
	}

	startsAt, endsAt, err := s.slot(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "reservation.book",
		telemetry.MemberID(memberID), attribute.Int("gym.trainer_id", req.TrainerID))
	defer func() { telemetry.End(span, err) }()

	var t *trainer.Trainer
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.admitTrainer(ctx, req.TrainerID, startsAt, endsAt, 0)
		if err != nil {
			return err
		}

		r, err := s.repo.Create(ctx, memberID, req.TrainerID, startsAt, endsAt, nil)
		if err != nil {
			return err
		}

		// A failed debit rolls the reservation back with it.
		acct, err := s.ledger.DebitForBooking(ctx, memberID, r.ID)
		if err != nil {
			return err
		}

		// Checked under the account lock so two bookings by one member serialize.
		if err := s.rejectMemberOverlap(ctx, r); err != nil {
			return err
		}

		resp = &BookingResponse{Reservation: *r, RemainingCredits: acct.RemainingCredits}
		return nil
	})
	if err != nil {
		err = db.Wrap(err)
		metrics.RecordCoreError("book", string(apperr.KindOf(err)))
		return nil, err
	}

	metrics.RecordReservation("book")
	if !resp.RemainingCredits.IsUnlimited() {
		metrics.RecordCreditMovement(string(membership.ReasonBooking))
	}
	logger.Info("reservation booked",
		"reservation_id", resp.Reservation.ID,
		"member_id", memberID,
		"trainer_id", t.ID,
		"starts_at", startsAt,
		"balance", resp.RemainingCredits.String(),
	)

	s.notify(ctx, memberID, func(u *user.User) error {
		return s.notifier.SendReservationConfirmation(ctx, u.Email, u.Name, t.Name, startsAt)
	})
	return resp, nil
}

// lockOwned locks a reservation the requester may act on and requires it to
// be confirmed.
func (s *service) lockOwned(ctx context.Context, requester auth.Identity, id int) (*Reservation, error) {
	r, err := s.repo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.CanActFor(r.MemberID) {
		return nil, apperr.Forbidden("reservation belongs to another member")
	}
	if !r.IsConfirmed() {
		return nil, apperr.InvalidState(fmt.Sprintf("reservation is %s", r.Status))
	}
	return r, nil
}

// Cancel cancels a confirmed reservation and returns its credit. Lock order:
// reservation, then account.
func (s *service) Cancel(ctx context.Context, requester auth.Identity, id int) (resp *BookingResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "reservation.cancel", attribute.Int("gym.reservation_id", id))
	defer func() { telemetry.End(span, err) }()

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		r, err := s.lockOwned(ctx, requester, id)
		if err != nil {
			return err
		}

		cancelled, err := s.repo.SetStatus(ctx, id, StatusConfirmed, StatusCancelled, s.now())
		if err != nil {
			return err
		}

		acct, err := s.ledger.CreditForCancellation(ctx, r.MemberID, r.ID)
		if err != nil {
			return err
		}

		resp = &BookingResponse{Reservation: *cancelled, RemainingCredits: acct.RemainingCredits}
		return nil
	})
	if err != nil {
		err = db.Wrap(err)
		metrics.RecordCoreError("cancel", string(apperr.KindOf(err)))
		return nil, err
	}

	r := resp.Reservation
	span.SetAttributes(telemetry.MemberID(r.MemberID))
	metrics.RecordReservation("cancel")
	if !resp.RemainingCredits.IsUnlimited() {
		metrics.RecordCreditMovement(string(membership.ReasonCancellation))
	}
	logger.Info("reservation cancelled",
		"reservation_id", r.ID,
		"member_id", r.MemberID,
		"by", requester.MemberID,
		"balance", resp.RemainingCredits.String(),
	)

	s.notify(ctx, r.MemberID, func(u *user.User) error {
		return s.notifier.SendReservationCancellation(ctx, u.Email, u.Name, s.trainerName(ctx, r.TrainerID), r.StartsAt)
	})
	return resp, nil
}

// Reschedule cancels a confirmed reservation and creates its replacement,
// linked back to it, without moving credits. Lock order: reservation,
// trainer, then account.
func (s *service) Reschedule(ctx context.Context, requester auth.Identity, id int, req RescheduleRequest) (resp *RescheduleResponse, err error) {
	startsAt, endsAt, err := s.slot(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "reservation.reschedule", attribute.Int("gym.reservation_id", id))
	defer func() { telemetry.End(span, err) }()

	var t *trainer.Trainer
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		old, err := s.lockOwned(ctx, requester, id)
		if err != nil {
			return err
		}

		trainerID := old.TrainerID
		if req.TrainerID != nil {
			trainerID = *req.TrainerID
		}
		t, err = s.admitTrainer(ctx, trainerID, startsAt, endsAt, old.ID)
		if err != nil {
			return err
		}

		cancelled, err := s.repo.SetStatus(ctx, old.ID, StatusConfirmed, StatusCancelled, s.now())
		if err != nil {
			return err
		}

		next, err := s.repo.Create(ctx, old.MemberID, trainerID, startsAt, endsAt, &old.ID)
		if err != nil {
			return err
		}
		// Same account lock as Book, so a concurrent booking cannot slip
		// into the new slot.
		if _, err := s.ledger.LockAccount(ctx, old.MemberID); err != nil {
			return err
		}
		if err := s.rejectMemberOverlap(ctx, next); err != nil {
			return err
		}

		resp = &RescheduleResponse{Cancelled: *cancelled, Reservation: *next}
		return nil
	})
	if err != nil {
		err = db.Wrap(err)
		metrics.RecordCoreError("reschedule", string(apperr.KindOf(err)))
		return nil, err
	}

	next := resp.Reservation
	span.SetAttributes(telemetry.MemberID(next.MemberID))
	metrics.RecordReservation("reschedule")
	logger.Info("reservation rescheduled",
		"reservation_id", next.ID,
		"rescheduled_from", id,
		"member_id", next.MemberID,
		"trainer_id", next.TrainerID,
		"starts_at", next.StartsAt,
	)

	s.notify(ctx, next.MemberID, func(u *user.User) error {
		return s.notifier.SendReservationRescheduled(ctx, u.Email, u.Name, t.Name, resp.Cancelled.StartsAt, next.StartsAt)
	})
	return resp, nil
}

func (s *service) Complete(ctx context.Context, id int) (*Reservation, error) {
	return s.close(ctx, id, StatusCompleted, "complete")
}

func (s *service) MarkNoShow(ctx context.Context, id int) (*Reservation, error) {
	return s.close(ctx, id, StatusNoShow, "no_show")
}

// close ends a confirmed reservation without touching credits.
func (s *service) close(ctx context.Context, id int, to Status, operation string) (*Reservation, error) {
	var r *Reservation
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.IsConfirmed() {
			return apperr.InvalidState(fmt.Sprintf("reservation is %s", current.Status))
		}
		r, err = s.repo.SetStatus(ctx, id, StatusConfirmed, to, s.now())
		return err
	})
	if err != nil {
		err = db.Wrap(err)
		metrics.RecordCoreError(operation, string(apperr.KindOf(err)))
		return nil, err
	}

	metrics.RecordReservation(operation)
	logger.Info("reservation closed", "reservation_id", r.ID, "member_id", r.MemberID, "status", r.Status)
	return r, nil
}

func (s *service) List(ctx context.Context, memberID, limit, offset int) ([]Reservation, error) {
	out, err := s.repo.ListByMember(ctx, memberID, limit, offset)
	if err != nil {
		return nil, db.Wrap(err)
	}
	return out, nil
}

func (s *service) trainerName(ctx context.Context, trainerID int) string {
	t, err := s.trainers.GetByID(ctx, trainerID)
	if err != nil {
		return "your trainer"
	}
	return t.Name
}

// notify runs after commit; a failed notification never undoes a reservation.
func (s *service) notify(ctx context.Context, memberID int, send func(u *user.User) error) {
	if s.notifier == nil {
		return
	}
	u, err := s.contacts.FindByID(ctx, memberID)
	if err == nil {
		err = send(u)
	}
	if err != nil {
		logger.Warn("reservation email not queued", "member_id", memberID, "error", err)
	}
}

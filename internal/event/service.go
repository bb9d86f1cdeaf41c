package event

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"kickgym/internal/apperr"
	"kickgym/internal/auth"
	"kickgym/internal/capacity"
	"kickgym/internal/db"
	"kickgym/internal/logger"
	"kickgym/internal/metrics"
	"kickgym/internal/telemetry"
	"kickgym/internal/user"
)

var ErrAlreadyRegistered = apperr.AlreadyRegistered("already registered for this event")

type Contacts interface {
	FindByID(ctx context.Context, id int) (*user.User, error)
}

type Notifier interface {
	SendEventRegistration(ctx context.Context, to, name, eventTitle string, startsAt time.Time) error
}

type Service interface {
	Create(ctx context.Context, req CreateEventRequest) (*Event, error)
	ListUpcoming(ctx context.Context) ([]EventWithSeats, error)
	// Register claims a seat. The duplicate check, the capacity check and the
	// insert happen under the event row lock.
	Register(ctx context.Context, requester auth.Identity, eventID int) (*Registration, error)
	Unregister(ctx context.Context, requester auth.Identity, eventID int) (*Registration, error)
}

type service struct {
	repo     Repository
	tx       db.TxRunner
	contacts Contacts
	notifier Notifier
	now      func() time.Time
}

func NewService(repo Repository, tx db.TxRunner, contacts Contacts, notifier Notifier) Service {
	return &service{
		repo:     repo,
		tx:       tx,
		contacts: contacts,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Create(ctx context.Context, req CreateEventRequest) (*Event, error) {
	if !req.StartsAt.After(s.now()) {
		return nil, apperr.InvalidArgument("starts_at must be in the future")
	}
	e, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, db.Wrap(err)
	}
	logger.Info("event created", "event_id", e.ID, "starts_at", e.StartsAt, "capacity", e.Capacity)
	return e, nil
}

func (s *service) ListUpcoming(ctx context.Context) ([]EventWithSeats, error) {
	events, err := s.repo.ListUpcoming(ctx, s.now())
	if err != nil {
		return nil, db.Wrap(err)
	}
	for i := range events {
		events[i].SeatsLeft = capacity.Remaining(events[i].Registered, events[i].Capacity)
	}
	return events, nil
}

func (s *service) Register(ctx context.Context, requester auth.Identity, eventID int) (reg *Registration, err error) {
	ctx, span := telemetry.StartSpan(ctx, "event.register",
		telemetry.MemberID(requester.MemberID), attribute.Int("gym.event_id", eventID))
	defer func() { telemetry.End(span, err) }()

	var e *Event
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		e, err = s.repo.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if !e.StartsAt.After(s.now()) {
			return apperr.InvalidState("event has already started")
		}

		existing, err := s.repo.FindRegistration(ctx, eventID, requester.MemberID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status == RegistrationRegistered {
			return ErrAlreadyRegistered
		}

		n, err := s.repo.CountRegistered(ctx, eventID)
		if err != nil {
			return err
		}
		if err := capacity.Admit(n, e.Capacity); err != nil {
			return apperr.CapacityExceeded("event is full")
		}

		if existing != nil {
			reg, err = s.repo.SetRegistrationStatus(ctx, existing.ID, RegistrationCancelled, RegistrationRegistered)
			return err
		}
		reg, err = s.repo.CreateRegistration(ctx, eventID, requester.MemberID)
		if db.IsUniqueViolation(err, "event_registrations_event_member_key") {
			return ErrAlreadyRegistered
		}
		return err
	})
	if err != nil {
		err = db.Wrap(err)
		outcome := string(apperr.KindOf(err))
		metrics.RecordEventRegistration(outcome)
		metrics.RecordCoreError("register", outcome)
		return nil, err
	}

	metrics.RecordEventRegistration("registered")
	logger.Info("event registration", "event_id", eventID, "member_id", requester.MemberID, "registration_id", reg.ID)

	s.notify(ctx, requester.MemberID, e)
	return reg, nil
}

func (s *service) Unregister(ctx context.Context, requester auth.Identity, eventID int) (*Registration, error) {
	var reg *Registration
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetForUpdate(ctx, eventID); err != nil {
			return err
		}
		existing, err := s.repo.FindRegistration(ctx, eventID, requester.MemberID)
		if err != nil {
			return err
		}
		if existing == nil || existing.Status != RegistrationRegistered {
			return ErrRegistrationNotFound
		}
		reg, err = s.repo.SetRegistrationStatus(ctx, existing.ID, RegistrationRegistered, RegistrationCancelled)
		return err
	})
	if err != nil {
		err = db.Wrap(err)
		metrics.RecordCoreError("unregister", string(apperr.KindOf(err)))
		return nil, err
	}

	metrics.RecordEventRegistration("cancelled")
	logger.Info("event registration cancelled", "event_id", eventID, "member_id", requester.MemberID)
	return reg, nil
}

func (s *service) notify(ctx context.Context, memberID int, e *Event) {
	if s.notifier == nil {
		return
	}
	u, err := s.contacts.FindByID(ctx, memberID)
	if err == nil {
		err = s.notifier.SendEventRegistration(ctx, u.Email, u.Name, e.Title, e.StartsAt)
	}
	if err != nil {
		logger.Warn("event email not queued", "member_id", memberID, "event_id", e.ID, "error", err)
	}
}

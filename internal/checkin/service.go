package checkin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"kickgym/internal/apperr"
	"kickgym/internal/broker"
	"kickgym/internal/db"
	"kickgym/internal/logger"
	"kickgym/internal/membership"
	"kickgym/internal/metrics"
	"kickgym/internal/telemetry"
)

type Service interface {
	// Toggle checks the member in when no session is open and out otherwise.
	Toggle(ctx context.Context, identifier string, method Method) (*ToggleResult, error)
	ListOpen(ctx context.Context) ([]OpenSession, error)
}

type service struct {
	repo           Repository
	tx             db.TxRunner
	publisher      broker.Publisher
	publishTimeout time.Duration
	now            func() time.Time
}

func NewService(repo Repository, tx db.TxRunner, publisher broker.Publisher) Service {
	return &service{
		repo:           repo,
		tx:             tx,
		publisher:      publisher,
		publishTimeout: broker.PublishTimeout,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Toggle(ctx context.Context, identifier string, method Method) (res *ToggleResult, err error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, apperr.InvalidArgument("identifier is required")
	}
	if !method.Valid() {
		return nil, apperr.InvalidArgument("method must be qr or manual")
	}

	ctx, span := telemetry.StartSpan(ctx, "checkin.toggle", attribute.String("checkin.method", string(method)))
	defer func() { telemetry.End(span, err) }()

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		member, err := s.repo.ResolveMember(ctx, identifier)
		if err != nil {
			return err
		}
		if member.Status != membership.StatusActive {
			return apperr.InvalidState(fmt.Sprintf("membership account is %s", member.Status))
		}
		if err := s.repo.LockMember(ctx, member.ID); err != nil {
			return err
		}

		open, err := s.repo.FindOpenForUpdate(ctx, member.ID)
		if err != nil {
			return err
		}

		now := s.now()
		res = &ToggleResult{MemberName: member.Name, MemberNumber: member.MemberNumber, Timestamp: now}

		if open != nil {
			closed, err := s.repo.Close(ctx, open.ID, now)
			if err != nil {
				return err
			}
			res.Action, res.Session = ActionCheckOut, *closed
			return nil
		}

		opened, err := s.repo.Open(ctx, member.ID, method, now)
		if err != nil {
			return err
		}
		res.Action, res.Session = ActionCheckIn, *opened
		return nil
	})
	if err != nil {
		err = db.Wrap(err)
		metrics.RecordCoreError("checkin_toggle", string(apperr.KindOf(err)))
		return nil, err
	}

	span.SetAttributes(telemetry.MemberID(res.Session.MemberID), attribute.String("checkin.action", string(res.Action)))
	metrics.RecordToggle(string(res.Action), string(method))
	logger.Info("check-in toggled",
		"member_id", res.Session.MemberID,
		"action", res.Action,
		"session_id", res.Session.ID,
		"method", method,
	)

	s.publish(ctx, res)
	return res, nil
}

// publish runs after commit; a broker outage never undoes or stalls a toggle.
func (s *service) publish(ctx context.Context, res *ToggleResult) {
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	event := broker.AttendanceEvent{
		MemberID:     res.Session.MemberID,
		MemberNumber: res.MemberNumber,
		Action:       string(res.Action),
		SessionID:    res.Session.ID,
		Method:       string(res.Session.Method),
		At:           res.Timestamp,
	}
	if err := s.publisher.PublishAttendance(ctx, event); err != nil {
		logger.Warn("attendance event not published", "member_id", event.MemberID, "session_id", event.SessionID, "error", err)
	}
}

func (s *service) ListOpen(ctx context.Context) ([]OpenSession, error) {
	sessions, err := s.repo.ListOpen(ctx)
	if err != nil {
		return nil, db.Wrap(err)
	}
	return sessions, nil
}

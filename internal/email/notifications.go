package email

import (
	"context"
	"fmt"
	"time"
)

func (s *Service) SendReservationConfirmation(ctx context.Context, to, name, trainerName string, startsAt time.Time) error {
	body := fmt.Sprintf(`Hi %s,

Your session with %s is booked for %s.

One session credit has been used unless you are on an unlimited plan.

See you at the gym!`, name, trainerName, s.when(startsAt))

	return s.Send(ctx, "reservation_confirmation", to, name, "Session booked with "+trainerName, body)
}

func (s *Service) SendReservationCancellation(ctx context.Context, to, name, trainerName string, startsAt time.Time) error {
	body := fmt.Sprintf(`Hi %s,

Your session with %s on %s has been cancelled and the session credit returned to your account.`,
		name, trainerName, s.when(startsAt))

	return s.Send(ctx, "reservation_cancellation", to, name, "Session cancelled", body)
}

func (s *Service) SendReservationRescheduled(ctx context.Context, to, name, trainerName string, from, startsAt time.Time) error {
	body := fmt.Sprintf(`Hi %s,

Your session originally on %s has moved to %s with %s.`,
		name, s.when(from), s.when(startsAt), trainerName)

	return s.Send(ctx, "reservation_rescheduled", to, name, "Session rescheduled", body)
}

func (s *Service) SendEventRegistration(ctx context.Context, to, name, eventTitle string, startsAt time.Time) error {
	body := fmt.Sprintf(`Hi %s,

You have a seat at %s on %s.`, name, eventTitle, s.when(startsAt))

	return s.Send(ctx, "event_registration", to, name, "You're registered: "+eventTitle, body)
}

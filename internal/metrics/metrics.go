package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kickgym_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kickgym_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	CheckInTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kickgym_checkin_toggles_total",
			Help: "Check-in toggles by resulting action and method",
		},
		[]string{"action", "method"},
	)

	MembersOnPremises = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kickgym_members_on_premises",
			Help: "Members with an open check-in session, as seen by this instance",
		},
	)

	ReservationTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kickgym_reservation_transitions_total",
			Help: "Reservation state transitions by operation",
		},
		[]string{"operation"},
	)

	CreditMovementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kickgym_credit_movements_total",
			Help: "Session credit balance mutations by reason",
		},
		[]string{"reason"},
	)

	PlanPurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kickgym_plan_purchases_total",
			Help: "Plan purchases by category",
		},
		[]string{"category"},
	)

	EventRegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kickgym_event_registrations_total",
			Help: "Event registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	CoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kickgym_core_errors_total",
			Help: "Failed core operations by operation and error kind",
		},
		[]string{"operation", "kind"},
	)

	EmailsQueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kickgym_emails_total",
			Help: "Notification emails by type and status",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kickgym_email_queue_length",
			Help: "Current length of the email queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordToggle(action, method string) {
	CheckInTogglesTotal.WithLabelValues(action, method).Inc()
	switch action {
	case "checkin":
		MembersOnPremises.Inc()
	case "checkout":
		MembersOnPremises.Dec()
	}
}

func RecordReservation(operation string) {
	ReservationTransitionsTotal.WithLabelValues(operation).Inc()
}

func RecordCreditMovement(reason string) {
	CreditMovementsTotal.WithLabelValues(reason).Inc()
}

func RecordPlanPurchase(category string) {
	PlanPurchasesTotal.WithLabelValues(category).Inc()
}

func RecordEventRegistration(outcome string) {
	EventRegistrationsTotal.WithLabelValues(outcome).Inc()
}

func RecordCoreError(operation, kind string) {
	CoreErrorsTotal.WithLabelValues(operation, kind).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsQueuedTotal.WithLabelValues(emailType, status).Inc()
}

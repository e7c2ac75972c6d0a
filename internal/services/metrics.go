package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// sendsTotal counts outbound deliveries by outcome
	// (delivered | failed | unreachable).
	sendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "squadbot_sends_total",
			Help: "Total number of outbound message sends by outcome.",
		},
		[]string{"outcome"},
	)

	// deregistrationsTotal counts members removed after the transport
	// reported them permanently unreachable.
	deregistrationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "squadbot_deregistrations_total",
			Help: "Total number of members deregistered after permanent delivery failure.",
		},
	)

	// ticketsExpiredTotal counts tickets force-closed by the inactivity
	// sweep.
	ticketsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "squadbot_tickets_expired_total",
			Help: "Total number of tickets force-closed by the inactivity sweep.",
		},
	)
)

func init() {
	prometheus.MustRegister(sendsTotal, deregistrationsTotal, ticketsExpiredTotal)
}

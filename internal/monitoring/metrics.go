// Package monitoring exposes Prometheus counters for the booking and
// payment flows, served on /metrics.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationsTotal counts reservation attempts by outcome
	// (reserved, conflict, rejected, error).
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldrent_reservations_total",
		Help: "Reservation attempts by outcome.",
	}, []string{"outcome"})

	// PaymentsConfirmedTotal counts successful payment confirmations by
	// source (webhook, manual).
	PaymentsConfirmedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldrent_payments_confirmed_total",
		Help: "Payments confirmed by source.",
	}, []string{"source"})

	// WebhooksTotal counts inbound webhook deliveries by result
	// (matched, unmatched, duplicate, error).
	WebhooksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldrent_webhooks_total",
		Help: "Inbound bank webhook deliveries by result.",
	}, []string{"result"})

	// PayoutsTotal counts payout lifecycle events by status
	// (requested, paid, rejected).
	PayoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldrent_payouts_total",
		Help: "Payout lifecycle events by status.",
	}, []string{"status"})

	// HoldsReleasedTotal counts slots released by the hold reaper.
	HoldsReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldrent_holds_released_total",
		Help: "Expired slot holds released by the reaper.",
	})
)

// Package metrics registers the Prometheus instruments for the points and
// ticketing engine. Counters are labelled by outcome so a dashboard can
// separate business rejections (already_issued, insufficient_balance) from
// infrastructure failures.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IssuanceTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "macsvc_ticket_issuance_total",
		Help: "Ticket issuance attempts by outcome.",
	}, []string{"outcome"})

	RedemptionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "macsvc_ticket_redemption_total",
		Help: "Ticket redemption attempts by outcome.",
	}, []string{"outcome"})

	LedgerAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "macsvc_ledger_adjustments_total",
		Help: "Point ledger adjustments by direction and result.",
	}, []string{"direction", "result"})
)

// Outcome label values shared by the services.
const (
	OutcomeIssued              = "issued"
	OutcomeUnknownEvent        = "unknown_event"
	OutcomeSaleClosed          = "sale_closed"
	OutcomeAlreadyIssued       = "already_issued"
	OutcomeInsufficientBalance = "insufficient_balance"
	OutcomeError               = "error"

	OutcomeRedeemed        = "redeemed"
	OutcomeAlreadyExpended = "already_expended"
	OutcomeUnknownTicket   = "unknown_ticket"
)

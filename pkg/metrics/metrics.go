// Package metrics registers the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransfersInitiated counts outbound transfers locked into escrow
	TransfersInitiated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bridge",
		Name:      "transfers_initiated_total",
		Help:      "Number of outbound transfers initiated",
	})

	// TransfersConfirmed counts relayer confirmations
	TransfersConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bridge",
		Name:      "transfers_confirmed_total",
		Help:      "Number of outbound transfers confirmed by relayers",
	})

	// TransfersReleased counts released transfers by direction
	TransfersReleased = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Name:      "transfers_released_total",
		Help:      "Number of transfers released from escrow",
	}, []string{"direction"})

	// FeesCollected accumulates service fees, in smallest units
	FeesCollected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bridge",
		Name:      "fees_collected_units_total",
		Help:      "Total service fees retained, in smallest local units",
	})

	// EscrowBalance tracks the escrow account balance, in smallest units
	EscrowBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bridge",
		Name:      "escrow_balance_units",
		Help:      "Current escrow account balance, in smallest local units",
	})

	// ReconciliationDrift is the difference between the escrow balance and
	// the sum of outstanding locked amounts. Zero when the ledger is sound.
	ReconciliationDrift = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bridge",
		Name:      "reconciliation_drift_units",
		Help:      "Escrow balance minus outstanding locked amounts, in smallest local units",
	})

	// ForceWithdrawals counts emergency escrow drains. Should stay at zero.
	ForceWithdrawals = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bridge",
		Name:      "force_withdrawals_total",
		Help:      "Number of emergency escrow withdrawals performed by an admin",
	})

	// HTTPRequests counts HTTP requests by method, path and status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Name:      "http_requests_total",
		Help:      "Number of HTTP requests processed",
	}, []string{"method", "path", "status"})

	// HTTPDuration observes request latency by method and path
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bridge",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Package metrics provides Prometheus instrumentation, grounded on
// _examples/mbd888-alancoin/internal/metrics's package-level collector
// var block, trimmed to the escrow engines' own observability surface.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	BountyLockedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "escrow", Name: "bounty_locked_total",
		Help: "Total lock_funds calls that succeeded.",
	})

	BountyReleasedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "escrow", Name: "bounty_released_total",
		Help: "Total bounty release operations by kind (full, partial, claim).",
	}, []string{"kind"})

	BountyRefundedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "escrow", Name: "bounty_refunded_total",
		Help: "Total bounty refund operations by resulting status.",
	}, []string{"status"})

	ProgramPayoutTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "escrow", Name: "program_payout_total",
		Help: "Total program payouts executed (single + batch, post-multisig).",
	})

	ProgramPayoutAmount = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "escrow", Name: "program_payout_amount",
		Help:    "Distribution of individual program payout amounts.",
		Buckets: []float64{10, 100, 1_000, 10_000, 100_000, 1_000_000},
	})

	CircuitBreakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "escrow", Name: "circuit_breaker_state",
		Help: "Current circuit breaker state (0=Closed, 1=Open, 2=HalfOpen).",
	})

	RateLimitRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "escrow", Name: "rate_limit_rejected_total",
		Help: "Total operations rejected by the rate limiter (RateLimit + Cooldown).",
	})

	ActiveWebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "escrow", Name: "active_websocket_clients",
		Help: "Number of currently connected event-stream websocket clients.",
	})

	ErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "escrow", Name: "errors_total",
		Help: "Total mutator failures by error code name.",
	}, []string{"code"})
)

// Register adds every collector above to reg. Called once at process
// start; reg is typically prometheus.DefaultRegisterer.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		BountyLockedTotal,
		BountyReleasedTotal,
		BountyRefundedTotal,
		ProgramPayoutTotal,
		ProgramPayoutAmount,
		CircuitBreakerState,
		RateLimitRejectedTotal,
		ActiveWebSocketClients,
		ErrorsTotal,
	)
}

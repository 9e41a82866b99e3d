package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments published by the engine. All
// instruments are registered on the registry passed to NewMetrics so tests
// can use an isolated registry.
type Metrics struct {
	TicksProcessed  prometheus.Counter
	SignalsEmitted  *prometheus.CounterVec
	OrdersSubmitted prometheus.Counter
	OrdersRejected  prometheus.Counter
	RiskLevel       prometheus.Gauge
	PortfolioValue  prometheus.Gauge
	UnrealizedPL    prometheus.Gauge
	LoopDuration    prometheus.Histogram
}

// NewMetrics creates and registers the engine's metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optiq_ticks_processed_total",
			Help: "Total market-data ticks processed by the decision loop.",
		}),
		SignalsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "optiq_signals_emitted_total",
			Help: "Total strategy signals emitted, by signal type.",
		}, []string{"type"}),
		OrdersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optiq_orders_submitted_total",
			Help: "Total orders admitted by risk checks and sent to the broker.",
		}),
		OrdersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optiq_orders_rejected_total",
			Help: "Total orders rejected by risk checks.",
		}),
		RiskLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "optiq_risk_level",
			Help: "Current portfolio risk level in [0,1].",
		}),
		PortfolioValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "optiq_portfolio_value",
			Help: "Current total portfolio value.",
		}),
		UnrealizedPL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "optiq_unrealized_pl",
			Help: "Current aggregate unrealized profit and loss.",
		}),
		LoopDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "optiq_loop_duration_seconds",
			Help:    "Duration of one decision-loop iteration.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}

	reg.MustRegister(
		m.TicksProcessed,
		m.SignalsEmitted,
		m.OrdersSubmitted,
		m.OrdersRejected,
		m.RiskLevel,
		m.PortfolioValue,
		m.UnrealizedPL,
		m.LoopDuration,
	)
	return m
}

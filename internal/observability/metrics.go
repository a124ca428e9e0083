// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Backtest metrics
	BacktestRunsTotal *prometheus.CounterVec
	BacktestDuration  *prometheus.HistogramVec
	TradesSimulated   prometheus.Counter

	// Sweep metrics
	SweepRunsTotal   *prometheus.CounterVec
	SweepEvaluations *prometheus.CounterVec
	SweepDuration    *prometheus.HistogramVec

	// Paper trading metrics
	OrdersSubmitted *prometheus.CounterVec
	OrdersFilled    *prometheus.CounterVec
	OrdersRejected  *prometheus.CounterVec
	OrdersCancelled prometheus.Counter
	TicksProcessed  prometheus.Counter
	ActiveSessions  prometheus.Gauge

	// Feed metrics
	FeedReconnects    prometheus.Counter
	FeedMessageErrors prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	UptimeSeconds prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "strategy_lab"
	}

	return &Metrics{
		// Backtest metrics
		BacktestRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by strategy and status",
		}, []string{"strategy", "status"}),
		BacktestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"strategy"}),
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_simulated_total",
			Help:      "Total number of closed trades produced by backtests",
		}),

		// Sweep metrics
		SweepRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Total number of parameter sweeps by mode and status",
		}, []string{"mode", "status"}),
		SweepEvaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "evaluations_total",
			Help:      "Total number of sweep evaluations by mode and outcome",
		}, []string{"mode", "outcome"}),
		SweepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Sweep execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"mode"}),

		// Paper trading metrics
		OrdersSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "orders_submitted_total",
			Help:      "Total number of orders submitted by type and side",
		}, []string{"type", "side"}),
		OrdersFilled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "orders_filled_total",
			Help:      "Total number of orders filled by type",
		}, []string{"type"}),
		OrdersRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "orders_rejected_total",
			Help:      "Total number of orders rejected by reason",
		}, []string{"reason"}),
		OrdersCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "orders_cancelled_total",
			Help:      "Total number of orders cancelled",
		}),
		TicksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "ticks_processed_total",
			Help:      "Total number of price ticks processed",
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "active_sessions",
			Help:      "Current number of open paper trading sessions",
		}),

		// Feed metrics
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of websocket reconnect attempts",
		}),
		FeedMessageErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "message_errors_total",
			Help:      "Total number of malformed feed messages skipped",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBacktestRun records a backtest run and its duration.
func RecordBacktestRun(strategy, status string, durationSeconds float64, trades int) {
	DefaultMetrics.BacktestRunsTotal.WithLabelValues(strategy, status).Inc()
	DefaultMetrics.BacktestDuration.WithLabelValues(strategy).Observe(durationSeconds)
	DefaultMetrics.TradesSimulated.Add(float64(trades))
}

// RecordSweep records a completed sweep with its evaluation outcomes.
func RecordSweep(mode, status string, durationSeconds float64, succeeded, failed int) {
	DefaultMetrics.SweepRunsTotal.WithLabelValues(mode, status).Inc()
	DefaultMetrics.SweepDuration.WithLabelValues(mode).Observe(durationSeconds)
	DefaultMetrics.SweepEvaluations.WithLabelValues(mode, "success").Add(float64(succeeded))
	DefaultMetrics.SweepEvaluations.WithLabelValues(mode, "failure").Add(float64(failed))
}

// RecordOrderSubmitted increments the submitted orders counter.
func RecordOrderSubmitted(orderType, side string) {
	DefaultMetrics.OrdersSubmitted.WithLabelValues(orderType, side).Inc()
}

// RecordOrderFilled increments the filled orders counter.
func RecordOrderFilled(orderType string) {
	DefaultMetrics.OrdersFilled.WithLabelValues(orderType).Inc()
}

// RecordOrderRejected increments the rejected orders counter.
func RecordOrderRejected(reason string) {
	DefaultMetrics.OrdersRejected.WithLabelValues(reason).Inc()
}

// RecordOrderCancelled increments the cancelled orders counter.
func RecordOrderCancelled() {
	DefaultMetrics.OrdersCancelled.Inc()
}

// RecordTick increments the processed ticks counter.
func RecordTick() {
	DefaultMetrics.TicksProcessed.Inc()
}

// SetActiveSessions updates the active session gauge.
func SetActiveSessions(n int) {
	DefaultMetrics.ActiveSessions.Set(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordFeedReconnect increments the feed reconnect counter.
func RecordFeedReconnect() {
	DefaultMetrics.FeedReconnects.Inc()
}

// RecordFeedMessageError increments the malformed feed message counter.
func RecordFeedMessageError() {
	DefaultMetrics.FeedMessageErrors.Inc()
}

// RecordUptime adds elapsed seconds to the uptime counter.
func RecordUptime(seconds float64) {
	DefaultMetrics.UptimeSeconds.Add(seconds)
}

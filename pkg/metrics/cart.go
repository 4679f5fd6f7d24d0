package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// CartMetrics records facade calls and change signals.
type CartMetrics struct {
	duration   *prometheus.HistogramVec
	operations *prometheus.CounterVec
	signals    prometheus.Counter
}

// NewCartMetrics registers the cart metrics on the provided registerer.
// A nil registerer yields a recorder whose methods are no-ops.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_operation_duration_seconds",
		Help:    "Duration of cart facade operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "mode"})
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Cart facade operations by outcome.",
	}, []string{"operation", "mode", "outcome"})
	signals := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_change_signals_total",
		Help: "Cart changed signals emitted on the notification bus.",
	})
	reg.MustRegister(duration, operations, signals)
	return &CartMetrics{
		duration:   duration,
		operations: operations,
		signals:    signals,
	}
}

// ObserveOperation records one facade call.
func (c *CartMetrics) ObserveOperation(operation, mode string, duration time.Duration, err error) {
	if c == nil || c.duration == nil {
		return
	}
	operation = normalizeLabel(operation)
	mode = normalizeLabel(mode)
	c.duration.WithLabelValues(operation, mode).Observe(duration.Seconds())
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	c.operations.WithLabelValues(operation, mode, outcome).Inc()
}

// IncSignal counts a change signal.
func (c *CartMetrics) IncSignal() {
	if c == nil || c.signals == nil {
		return
	}
	c.signals.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

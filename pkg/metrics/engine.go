package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records checkout and merge outcomes.
type EngineMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	checkouts        *prometheus.CounterVec
	merges           *prometheus.CounterVec
	mergedLines      prometheus.Counter
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "checkout_duration_seconds",
		Help:      "Duration of checkout transactions in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	merges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_merges_total",
		Help:      "Login cart merges by outcome.",
	}, []string{"outcome"})
	mergedLines := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_merged_lines_total",
		Help:      "Anonymous cart lines folded into account carts.",
	})
	reg.MustRegister(checkoutDuration, checkouts, merges, mergedLines)
	return &EngineMetrics{
		checkoutDuration: checkoutDuration,
		checkouts:        checkouts,
		merges:           merges,
		mergedLines:      mergedLines,
	}
}

// ObserveCheckout records one checkout attempt.
func (m *EngineMetrics) ObserveCheckout(outcome string, duration time.Duration) {
	if m == nil || m.checkouts == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.checkouts.WithLabelValues(outcome).Inc()
	m.checkoutDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveMerge records one merge attempt and how many lines it moved.
func (m *EngineMetrics) ObserveMerge(outcome string, lines int) {
	if m == nil || m.merges == nil {
		return
	}
	m.merges.WithLabelValues(normalizeLabel(outcome)).Inc()
	if lines > 0 {
		m.mergedLines.Add(float64(lines))
	}
}

const namespace = "storefront"

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outbox delivery outcomes.
const (
	OutboxOutcomePublished    = "published"
	OutboxOutcomeRetried      = "retried"
	OutboxOutcomeDeadLettered = "dead_lettered"
)

// OutboxMetrics counts relay outcomes per event type.
type OutboxMetrics struct {
	deliveries *prometheus.CounterVec
	batches    prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "deliveries_total",
		Help:      "Outbox rows handled by the relay, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	batches := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "batch_rows",
		Help:      "Rows claimed per relay batch.",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
	})
	reg.MustRegister(deliveries, batches)
	return &OutboxMetrics{deliveries: deliveries, batches: batches}
}

func (m *OutboxMetrics) Delivered(eventType, outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}

func (m *OutboxMetrics) BatchClaimed(rows int) {
	if m == nil || m.batches == nil {
		return
	}
	m.batches.Observe(float64(rows))
}

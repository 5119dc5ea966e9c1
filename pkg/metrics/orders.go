package metrics

import (
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics counts accepted order status transitions.
type OrderMetrics struct {
	transitions *prometheus.CounterVec
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_status_transitions_total",
		Help:      "Order status changes applied by admins.",
	}, []string{"from", "to"})
	reg.MustRegister(transitions)
	return &OrderMetrics{transitions: transitions}
}

// ObserveTransition records one status change. Safe on a nil receiver.
func (m *OrderMetrics) ObserveTransition(from, to enums.OrderStatus) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(string(from)), normalizeLabel(string(to))).Inc()
}

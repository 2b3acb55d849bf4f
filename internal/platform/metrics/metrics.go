package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	ProtocolActions   *prometheus.CounterVec
	ActionLatency     *prometheus.HistogramVec
	ApplicationsSaved prometheus.Counter
	RecheckProcessed  *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ProtocolActions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "benefit_gateway_protocol_actions_total",
			Help: "Protocol actions handled, by action and outcome",
		}, []string{"action", "outcome"}),
		ActionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "benefit_gateway_action_duration_seconds",
			Help:    "Latency of protocol actions",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
		ApplicationsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "benefit_gateway_applications_created_total",
			Help: "Applications created through init",
		}),
		RecheckProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "benefit_gateway_eligibility_rechecks_total",
			Help: "Eligibility recheck results, by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveAction records one handled protocol action.
func (m *Metrics) ObserveAction(action, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ProtocolActions.WithLabelValues(action, outcome).Inc()
	m.ActionLatency.WithLabelValues(action).Observe(seconds)
}

package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit delivery.
type Metrics struct {
	Emitted             *prometheus.CounterVec
	Dropped             *prometheus.CounterVec
	PersistFailures     *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec
}

// NewMetrics registers the audit metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Emitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "escolinha_audit_events_total",
			Help: "Audit events persisted, by action",
		}, []string{"action"}),
		Dropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "escolinha_audit_events_dropped_total",
			Help: "Audit events dropped, by reason (queue_full, circuit_open, persist_failed) and sink",
		}, []string{"reason", "sink"}),
		PersistFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "escolinha_audit_persist_failures_total",
			Help: "Failed attempts to persist an audit event, by sink",
		}, []string{"sink"}),
		CircuitBreakerState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "escolinha_audit_circuit_breaker_state",
			Help: "Audit sink circuit breaker state (0=closed, 1=open), by sink",
		}, []string{"sink"}),
	}
}

func (m *Metrics) incEmitted(action Action) {
	if m != nil {
		m.Emitted.WithLabelValues(string(action)).Inc()
	}
}

func (m *Metrics) incDropped(reason, sink string) {
	if m != nil {
		m.Dropped.WithLabelValues(reason, sink).Inc()
	}
}

func (m *Metrics) incPersistFailures(sink string) {
	if m != nil {
		m.PersistFailures.WithLabelValues(sink).Inc()
	}
}

func (m *Metrics) setBreaker(sink string, open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.WithLabelValues(sink).Set(1)
	} else {
		m.CircuitBreakerState.WithLabelValues(sink).Set(0)
	}
}

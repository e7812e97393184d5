package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the re-enrollment workflow.
type Metrics struct {
	LinksCreated  prometheus.Counter
	Responses     *prometheus.CounterVec
	LockConflicts prometheus.Counter
	Applied       *prometheus.CounterVec
	Finalized     *prometheus.CounterVec
}

// New creates a new Metrics instance with all re-enrollment metrics registered.
func New() *Metrics {
	return &Metrics{
		LinksCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "escolinha_rematricula_links_criados_total",
			Help: "Re-enrollment records created",
		}),
		Responses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "escolinha_rematricula_respostas_total",
			Help: "Re-enrollment answers stored, by answer",
		}, []string{"resposta"}),
		LockConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "escolinha_rematricula_lock_conflicts_total",
			Help: "Answers rejected because a class slot was held by another record",
		}),
		Applied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "escolinha_rematricula_aplicadas_total",
			Help: "Batch apply outcomes per record",
		}, []string{"result"}),
		Finalized: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "escolinha_rematricula_finalizadas_total",
			Help: "Records finalised by cleanup or pending deletion",
		}, []string{"path"}),
	}
}

func (m *Metrics) IncrementLinksCreated() {
	if m != nil {
		m.LinksCreated.Inc()
	}
}

func (m *Metrics) IncrementResponses(resposta string) {
	if m != nil {
		m.Responses.WithLabelValues(resposta).Inc()
	}
}

func (m *Metrics) IncrementLockConflicts() {
	if m != nil {
		m.LockConflicts.Inc()
	}
}

// AddApplied records batch apply outcomes: applied, skipped and failed.
func (m *Metrics) AddApplied(applied, skipped, failed int) {
	if m == nil {
		return
	}
	m.Applied.WithLabelValues("aplicada").Add(float64(applied))
	m.Applied.WithLabelValues("ignorada").Add(float64(skipped))
	m.Applied.WithLabelValues("erro").Add(float64(failed))
}

func (m *Metrics) AddFinalized(path string, n int) {
	if m != nil {
		m.Finalized.WithLabelValues(path).Add(float64(n))
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the turma module.
type Metrics struct {
	TurmasCriadas     prometheus.Counter
	Matriculas        prometheus.Counter
	Merges            prometheus.Counter
	Transfers         *prometheus.CounterVec
	MutationDuration  *prometheus.HistogramVec
	MutationConflicts prometheus.Counter
}

// New creates a new Metrics instance with all turma module metrics registered.
func New() *Metrics {
	return &Metrics{
		TurmasCriadas: promauto.NewCounter(prometheus.CounterOpts{
			Name: "escolinha_turmas_criadas_total",
			Help: "Total number of classes created",
		}),
		Matriculas: promauto.NewCounter(prometheus.CounterOpts{
			Name: "escolinha_matriculas_total",
			Help: "Total number of students enrolled",
		}),
		Merges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "escolinha_turmas_mescladas_total",
			Help: "Total number of class merges",
		}),
		Transfers: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "escolinha_transferencias_total",
			Help: "Students processed by move and copy, by operation and outcome",
		}, []string{"op", "result"}),
		MutationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escolinha_turma_mutation_duration_seconds",
			Help:    "Duration of roster mutations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),
		MutationConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "escolinha_turma_mutation_conflicts_total",
			Help: "Roster mutations that lost every compare-and-swap retry",
		}),
	}
}

func (m *Metrics) IncrementTurmasCriadas() {
	if m != nil {
		m.TurmasCriadas.Inc()
	}
}

func (m *Metrics) IncrementMatriculas() {
	if m != nil {
		m.Matriculas.Inc()
	}
}

func (m *Metrics) IncrementMerges() {
	if m != nil {
		m.Merges.Inc()
	}
}

// AddTransfers records a finished move or copy batch.
func (m *Metrics) AddTransfers(op string, processed, skipped int) {
	if m == nil {
		return
	}
	m.Transfers.WithLabelValues(op, "processed").Add(float64(processed))
	m.Transfers.WithLabelValues(op, "skipped").Add(float64(skipped))
}

// ObserveMutation records the duration of a roster mutation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveMutation(op string, start time.Time) {
	if m != nil {
		m.MutationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) IncrementConflicts() {
	if m != nil {
		m.MutationConflicts.Inc()
	}
}

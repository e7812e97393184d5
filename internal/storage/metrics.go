package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "escolinha_storage_operation_duration_seconds",
		Help:    "Duration of tree store operations by backend and operation",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"backend", "op"})

	swapRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escolinha_storage_swap_retries_total",
		Help: "Optimistic compare-and-swap attempts retried after a concurrent write",
	}, []string{"backend"})
)

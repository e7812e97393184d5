package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const drainTimeout = 5 * time.Second

// sink is one store behind its own breaker, so an outage in one sink never
// stops delivery to the others.
type sink struct {
	name    string
	store   Store
	breaker *CircuitBreaker
}

// Worker consumes audit events from a channel and persists them.
type Worker struct {
	sinks     []sink
	inbox     <-chan Event
	threshold int
	cooldown  time.Duration
	logger    *slog.Logger
	metrics   *Metrics
}

type WorkerOption func(*Worker)

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithWorkerMetrics(m *Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithBreakerPolicy sets the per-sink breaker (default 5 failures, 1 minute).
func WithBreakerPolicy(threshold int, cooldown time.Duration) WorkerOption {
	return func(w *Worker) {
		w.threshold = threshold
		w.cooldown = cooldown
	}
}

// NewWorker persists to store. A Fanout is split so each of its members gets
// a breaker of its own.
func NewWorker(store Store, inbox <-chan Event, opts ...WorkerOption) *Worker {
	w := &Worker{inbox: inbox, threshold: 5, cooldown: time.Minute}
	for _, opt := range opts {
		opt(w)
	}
	stores := []Store{store}
	if f, ok := store.(Fanout); ok {
		stores = f
	}
	for i, s := range stores {
		w.sinks = append(w.sinks, sink{
			name:    sinkName(s, i),
			store:   s,
			breaker: NewCircuitBreaker(w.threshold, w.cooldown),
		})
	}
	return w
}

func sinkName(s Store, i int) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("sink_%d", i)
}

// Run persists events until ctx is cancelled, then drains what is already
// queued and returns.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain(context.WithoutCancel(ctx))
			return nil
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.persist(ctx, event)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	for {
		select {
		case event, ok := <-w.inbox:
			if !ok {
				return
			}
			w.persist(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) persist(ctx context.Context, event Event) {
	stored := false
	for _, s := range w.sinks {
		if !s.breaker.Allow() {
			w.metrics.incDropped("circuit_open", s.name)
			continue
		}
		if err := s.store.Append(ctx, event); err != nil {
			s.breaker.RecordFailure()
			w.metrics.incPersistFailures(s.name)
			w.metrics.incDropped("persist_failed", s.name)
			w.metrics.setBreaker(s.name, s.breaker.IsOpen())
			if w.logger != nil {
				w.logger.ErrorContext(ctx, "failed to persist audit event",
					"sink", s.name,
					"action", event.Action,
					"subject", event.Subject,
					"error", err,
				)
			}
			continue
		}
		s.breaker.RecordSuccess()
		w.metrics.setBreaker(s.name, false)
		stored = true
	}
	if stored {
		w.metrics.incEmitted(event.Action)
	}
}

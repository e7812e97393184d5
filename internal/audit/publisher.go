package audit

import (
	"context"
	"errors"
	"log/slog"

	"escolinha/pkg/requestcontext"
)

// ErrQueueFull is returned by Emit when the async queue has no room.
var ErrQueueFull = errors.New("audit queue full")

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Fanout appends to every store and joins their errors.
type Fanout []Store

func (f Fanout) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Publisher captures structured audit events. Without a queue it writes
// synchronously; with one, a Worker drains the queue in the background.
type Publisher struct {
	store   Store
	queue   chan<- Event
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Publisher)

// WithQueue switches the publisher to async mode.
func WithQueue(queue chan<- Event) Option {
	return func(p *Publisher) {
		p.queue = queue
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit stamps the event with request metadata and hands it to the store or
// the queue. It never blocks on a full queue.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}

	if p.queue == nil {
		if err := p.store.Append(ctx, event); err != nil {
			p.metrics.incPersistFailures("sync")
			return err
		}
		p.metrics.incEmitted(event.Action)
		return nil
	}

	select {
	case p.queue <- event:
		return nil
	default:
		p.metrics.incDropped("queue_full", "queue")
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit queue full, dropping event",
				"action", event.Action,
				"subject", event.Subject,
			)
		}
		return ErrQueueFull
	}
}

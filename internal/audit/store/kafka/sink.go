// Package kafka publishes audit events to a Kafka topic, one JSON record per
// event keyed by subject so a subject's history stays in one partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"escolinha/internal/audit"
)

// Producer is the slice of *kgo.Client the sink uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Sink struct {
	client Producer
	topic  string
}

func New(client Producer, topic string) *Sink {
	return &Sink{client: client, topic: topic}
}

func (s *Sink) Name() string { return "kafka" }

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	record := &kgo.Record{
		Topic:     s.topic,
		Key:       []byte(event.Subject),
		Value:     value,
		Timestamp: event.Timestamp,
		Headers:   []kgo.RecordHeader{{Key: "action", Value: []byte(event.Action)}},
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event to %s: %w", s.topic, err)
	}
	return nil
}

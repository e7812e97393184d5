package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"escolinha/internal/audit"
)

type recordingProducer struct {
	records []*kgo.Record
	err     error
}

func (p *recordingProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.records = append(p.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func TestSinkAppend(t *testing.T) {
	producer := &recordingProducer{}
	sink := New(producer, "escolinha.audit")
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	err := sink.Append(context.Background(), audit.Event{Action: audit.EventRematriculaAplicada, Subject: "r1", Timestamp: at})
	require.NoError(t, err)
	require.Len(t, producer.records, 1)

	rec := producer.records[0]
	assert.Equal(t, "escolinha.audit", rec.Topic)
	assert.Equal(t, []byte("r1"), rec.Key)
	assert.Equal(t, "action", rec.Headers[0].Key)

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, audit.EventRematriculaAplicada, decoded.Action)
	assert.True(t, at.Equal(decoded.Timestamp))
}

func TestSinkAppendError(t *testing.T) {
	sink := New(&recordingProducer{err: errors.New("broker down")}, "t")
	err := sink.Append(context.Background(), audit.Event{Subject: "s"})
	assert.ErrorContains(t, err, "broker down")
}

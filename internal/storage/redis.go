package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"escolinha/pkg/platform/sentinel"
)

const (
	defaultRedisNamespace = "escolinha:"
	maxSwapAttempts       = 16
)

// RedisBackend stores one document per Redis string key. Swap uses
// WATCH/MULTI over every key involved and retries when a watched key changes
// underneath it.
type RedisBackend struct {
	client    *redis.Client
	namespace string
}

// RedisOption configures a RedisBackend.
type RedisOption func(*RedisBackend)

// WithNamespace prefixes every key; tests use it to isolate runs.
func WithNamespace(ns string) RedisOption {
	return func(b *RedisBackend) {
		b.namespace = ns
	}
}

// NewRedisBackend wraps a go-redis client.
func NewRedisBackend(client *redis.Client, opts ...RedisOption) *RedisBackend {
	b := &RedisBackend{client: client, namespace: defaultRedisNamespace}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) key(k string) string { return b.namespace + k }

func (b *RedisBackend) Load(ctx context.Context, key string) ([]byte, error) {
	raw, err := b.client.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return raw, err
}

func (b *RedisBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, escapeGlob(b.key(prefix))+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), b.namespace))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	// SCAN may return a key more than once.
	return dedupeSorted(keys), nil
}

func (b *RedisBackend) Swap(ctx context.Context, keys []string, fn func(map[string][]byte) (map[string][]byte, error)) error {
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = b.key(k)
	}

	txf := func(tx *redis.Tx) error {
		current := make(map[string][]byte, len(keys))
		for _, k := range keys {
			raw, err := tx.Get(ctx, b.key(k)).Bytes()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return err
			}
			current[k] = raw
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for k, raw := range next {
				if raw == nil {
					pipe.Del(ctx, b.key(k))
					continue
				}
				pipe.Set(ctx, b.key(k), raw, 0)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		err := b.client.Watch(ctx, txf, redisKeys...)
		if errors.Is(err, redis.TxFailedErr) {
			swapRetries.WithLabelValues(b.Name()).Inc()
			continue
		}
		return err
	}
	return sentinel.ErrConflict
}

func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}


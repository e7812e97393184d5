package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryBackend keeps documents in process. Swap holds the lock for the whole
// read-modify-write, so every transaction is serialised.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

// NewMemory is shorthand for a Tree over a fresh MemoryBackend.
func NewMemory() *Tree {
	return NewTree(NewMemoryBackend())
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.docs[key]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, raw...), nil
}

func (m *MemoryBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryBackend) Swap(ctx context.Context, keys []string, fn func(map[string][]byte) (map[string][]byte, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if raw, ok := m.docs[k]; ok {
			current[k] = append([]byte{}, raw...)
		}
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	for k, raw := range next {
		if raw == nil {
			delete(m.docs, k)
			continue
		}
		m.docs[k] = append([]byte{}, raw...)
	}
	return nil
}

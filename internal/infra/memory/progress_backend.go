package memory

import (
	"context"
	"sync"
)

// ProgressBackend is an in-memory implementation of app.ProgressBackend.
type ProgressBackend struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewProgressBackend() *ProgressBackend {
	return &ProgressBackend{values: make(map[string][]byte)}
}

func (b *ProgressBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (b *ProgressBackend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = append([]byte(nil), value...)
	return nil
}

func (b *ProgressBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, key)
	return nil
}

// Keys lists stored keys, mostly for tests.
func (b *ProgressBackend) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	return keys
}

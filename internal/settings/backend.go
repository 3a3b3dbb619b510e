package settings

import (
	"context"
	"maps"
	"sync"
)

// Backend stores the raw key/value pairs.
type Backend interface {
	// Get returns the stored values for keys. Missing keys are absent from
	// the map.
	Get(ctx context.Context, keys ...string) (map[string]string, error)

	// SetAll writes every pair atomically.
	SetAll(ctx context.Context, values map[string]string) error

	Close() error
}

// MemoryBackend keeps values in memory. It is used by tests and when no
// persistent store can be opened.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string

	// SetErr, when set, is returned by SetAll.
	SetErr error
}

// NewMemoryBackend returns a backend seeded with values.
func NewMemoryBackend(values map[string]string) *MemoryBackend {
	b := &MemoryBackend{values: make(map[string]string)}
	maps.Copy(b.values, values)
	return b
}

func (b *MemoryBackend) Get(_ context.Context, keys ...string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := b.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (b *MemoryBackend) SetAll(_ context.Context, values map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.SetErr != nil {
		return b.SetErr
	}
	maps.Copy(b.values, values)
	return nil
}

func (b *MemoryBackend) Close() error { return nil }

package credcache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// janitorInterval bounds how long an expired entry can linger physically
// before the background sweep removes it. Reads treat expired entries as
// absent regardless, so the interval only affects memory, not correctness.
const janitorInterval = time.Minute

// Memory is an in-memory store implementation using go-cache. Each entry
// carries its own TTL, fixed at Set time.
type Memory[T any] struct {
	cache *gocache.Cache
}

// NewMemory creates a new in-memory store.
func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{
		cache: gocache.New(gocache.NoExpiration, janitorInterval),
	}
}

// Get retrieves a value from the store.
// Returns the value, whether it was found, and any error.
func (m *Memory[T]) Get(ctx context.Context, key string) (T, bool, error) {
	entry, ok := m.cache.Get(key)
	if !ok {
		var zero T
		return zero, false, nil
	}

	value, ok := entry.(T)
	if !ok {
		var zero T
		return zero, false, nil
	}

	return value, true, nil
}

// Set stores a value with the given TTL, replacing any existing entry.
func (m *Memory[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}

	m.cache.Set(key, value, ttl)
	return nil
}

// Delete removes an entry from the store.
func (m *Memory[T]) Delete(ctx context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

// Clear removes all entries from the store.
func (m *Memory[T]) Clear(ctx context.Context) error {
	m.cache.Flush()
	return nil
}

var _ Store[string] = (*Memory[string])(nil)

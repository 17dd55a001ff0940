package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Typed provides JSON-encoded caching of T values on top of a Cacher.
type Typed[T any] struct {
	cache Cacher
	ttl   time.Duration
}

// NewTyped wraps c. ttl applies to every Set.
func NewTyped[T any](c Cacher, ttl time.Duration) *Typed[T] {
	return &Typed[T]{cache: c, ttl: ttl}
}

// Get returns the cached value and true, or false on a miss, backend error
// or undecodable entry.
func (t *Typed[T]) Get(ctx context.Context, key string) (T, bool) {
	var value T
	data, err := t.cache.Get(ctx, key)
	if err != nil {
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false
	}
	return value, true
}

// Set stores value.
func (t *Typed[T]) Set(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return t.cache.Set(ctx, key, data, t.ttl)
}

// GetOrSet returns the cached value or computes, stores and returns it.
// Store failures are ignored; the computed value is still returned.
func (t *Typed[T]) GetOrSet(ctx context.Context, key string, fn func() (T, error)) (T, error) {
	if value, ok := t.Get(ctx, key); ok {
		return value, nil
	}

	value, err := fn()
	if err != nil {
		return value, err
	}
	_ = t.Set(ctx, key, value)
	return value, nil
}

package cache

import (
	"context"
	"time"
)

// LayeredCache is a write-through two-level cache: memory in front of a
// shared backend (normally Redis).
type LayeredCache struct {
	mem     *MemoryCache
	backend Service
}

func NewLayeredCache(backend Service, opts ...MemoryOption) *LayeredCache {
	return &LayeredCache{mem: NewMemoryCache(opts...), backend: backend}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.backend.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	return lc.mem.Set(ctx, key, value, expiration)
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.mem.Get(ctx, key, dest); err == nil {
		return nil
	}
	return lc.backend.Get(ctx, key, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	return lc.backend.Delete(ctx, keys...)
}

// TryLock always goes to the backend so locks are shared across processes.
func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.backend.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Close() error {
	_ = lc.mem.Close()
	return lc.backend.Close()
}

var _ Service = (*LayeredCache)(nil)

package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type sample struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestMemoryCacheRoundTripTyped(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", sample{Name: "meter", Value: 1.5}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got sample
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "meter" || got.Value != 1.5 {
		t.Fatalf("unexpected value %+v", got)
	}

	if err := mc.Get(ctx, "missing", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryClock(clk.now))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "k", 1, time.Minute)
	clk.advance(59 * time.Second)
	var v int
	if err := mc.Get(ctx, "k", &v); err != nil || v != 1 {
		t.Fatalf("expected hit before expiry, got %v %v", v, err)
	}
	clk.advance(2 * time.Second)
	if err := mc.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryClock(clk.now))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", 1, 0)
	clk.advance(time.Second)
	_ = mc.Set(ctx, "b", 2, 0)
	clk.advance(time.Second)
	var v int
	_ = mc.Get(ctx, "a", &v) // a is now the most recent
	clk.advance(time.Second)
	_ = mc.Set(ctx, "c", 3, 0)

	if err := mc.Get(ctx, "b", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected b evicted, got %v", err)
	}
	if err := mc.Get(ctx, "a", &v); err != nil {
		t.Fatalf("expected a retained: %v", err)
	}
}

func TestMemoryCacheTryLock(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryClock(clk.now))
	defer mc.Close()
	ctx := context.Background()

	if ok, _ := mc.TryLock(ctx, "l", time.Minute); !ok {
		t.Fatalf("first lock should succeed")
	}
	if ok, _ := mc.TryLock(ctx, "l", time.Minute); ok {
		t.Fatalf("second lock should fail while live")
	}
	clk.advance(2 * time.Minute)
	if ok, _ := mc.TryLock(ctx, "l", time.Minute); !ok {
		t.Fatalf("lock should succeed after ttl")
	}
}

func TestLayeredCacheFallsBackToBackend(t *testing.T) {
	backend := NewMemoryCache()
	lc := NewLayeredCache(backend)
	defer lc.Close()
	ctx := context.Background()

	_ = backend.Set(ctx, "only-backend", "x", 0)
	var s string
	if err := lc.Get(ctx, "only-backend", &s); err != nil || s != "x" {
		t.Fatalf("expected backend hit, got %q %v", s, err)
	}

	_ = lc.Set(ctx, "both", "y", 0)
	_ = backend.Delete(ctx, "both")
	if err := lc.Get(ctx, "both", &s); err != nil || s != "y" {
		t.Fatalf("expected memory hit, got %q %v", s, err)
	}
}

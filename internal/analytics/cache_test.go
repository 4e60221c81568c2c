package analytics

import (
	"testing"
	"time"
)

func TestCacheReturnsFreshValues(t *testing.T) {
	cache := NewCache[int](time.Minute)

	if _, ok := cache.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}

	cache.Set("answer", 42)
	got, ok := cache.Get("answer")
	if !ok || got != 42 {
		t.Fatalf("expected fresh hit of 42, got %v ok=%v", got, ok)
	}

	cache.Invalidate("answer")
	if _, ok := cache.Get("answer"); ok {
		t.Fatal("expected miss after invalidation")
	}
}

func TestCacheExpiresEntries(t *testing.T) {
	cache := NewCache[string](50 * time.Millisecond)
	cache.Set("key", "value")

	if _, ok := cache.Get("key"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(80 * time.Millisecond)

	if _, ok := cache.Get("key"); ok {
		t.Fatal("expected miss after expiry")
	}
}

func TestCacheDefaultTTL(t *testing.T) {
	cache := NewCache[int](0)
	if cache.TTL() != DefaultCacheTTL {
		t.Fatalf("expected default TTL %v, got %v", DefaultCacheTTL, cache.TTL())
	}
}

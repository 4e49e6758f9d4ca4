package services

import (
	"fmt"
	"testing"
	"time"
)

func TestQueryCacheSetGet(t *testing.T) {
	cache := NewQueryCache(time.Minute, 16)
	defer cache.Stop()

	cache.Set("live_matches", []string{"m1", "m2"})

	data, ok := cache.Get("live_matches")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	matches, ok := data.([]string)
	if !ok || len(matches) != 2 {
		t.Errorf("Expected cached slice of 2 matches, got %v", data)
	}

	if _, ok := cache.Get("missing"); ok {
		t.Error("Expected cache miss for unknown key")
	}
}

func TestQueryCacheExpiry(t *testing.T) {
	cache := NewQueryCache(20*time.Millisecond, 16)
	defer cache.Stop()

	cache.Set("k", "v")
	if _, ok := cache.Get("k"); !ok {
		t.Fatal("Expected hit before TTL")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := cache.Get("k"); ok {
		t.Error("Expected miss after TTL")
	}
}

func TestQueryCacheBounded(t *testing.T) {
	cache := NewQueryCache(time.Minute, 4)
	defer cache.Stop()

	for i := 0; i < 10; i++ {
		cache.Set(fmt.Sprintf("key_%d", i), i)
	}

	if size := cache.Size(); size > 4 {
		t.Errorf("Expected cache to stay within 4 entries, got %d", size)
	}
	// the most recent entry survives eviction
	if _, ok := cache.Get("key_9"); !ok {
		t.Error("Expected the newest entry to survive eviction")
	}
}

func TestQueryCacheDeleteAndClear(t *testing.T) {
	cache := NewQueryCache(time.Minute, 16)
	defer cache.Stop()

	cache.Set("a", 1)
	cache.Set("b", 2)

	cache.Delete("a")
	if _, ok := cache.Get("a"); ok {
		t.Error("Expected deleted key to miss")
	}

	cache.Clear()
	if size := cache.Size(); size != 0 {
		t.Errorf("Expected empty cache after Clear, got %d entries", size)
	}
}

func TestGenerateCacheKeyStable(t *testing.T) {
	k1 := GenerateCacheKey("matches", map[string]int{"limit": 50})
	k2 := GenerateCacheKey("matches", map[string]int{"limit": 50})
	if k1 != k2 {
		t.Errorf("Expected identical params to produce the same key: %s vs %s", k1, k2)
	}

	k3 := GenerateCacheKey("matches", map[string]int{"limit": 100})
	if k1 == k3 {
		t.Error("Expected different params to produce different keys")
	}
}

package pokeapi

import (
	"context"
	"sync/atomic"
)

// Cache stores raw response bytes per endpoint.
//
// Implementations must be safe for concurrent use. Put replaces an entry
// atomically; Flush persists pending writes and never stops at the first
// failing endpoint.
type Cache interface {
	Has(ctx context.Context, endpoint, key string) bool
	Get(ctx context.Context, endpoint, key string) ([]byte, error)
	Put(ctx context.Context, endpoint, key string, raw []byte) error
	Remove(ctx context.Context, endpoint, key string) error
	// Clear drops every entry of endpoint, or of all endpoints when endpoint is empty.
	Clear(ctx context.Context, endpoint string) error
	Flush(ctx context.Context) error
	Stats() CacheStats
	Close() error
}

// CacheStats holds cache counters. Entries and Endpoints cover loaded,
// non-empty containers; Dirty counts containers with unsaved writes.
type CacheStats struct {
	Hits      int64 `json:"hits"      yaml:"hits"`
	Misses    int64 `json:"misses"    yaml:"misses"`
	Sets      int64 `json:"sets"      yaml:"sets"`
	Entries   int   `json:"entries"   yaml:"entries"`
	Endpoints int   `json:"endpoints" yaml:"endpoints"`
	Dirty     int   `json:"dirty"     yaml:"dirty"`
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// NoOpCache is a cache that does nothing (no caching).
type NoOpCache struct {
	misses atomic.Int64
}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Has always returns false.
func (c *NoOpCache) Has(ctx context.Context, endpoint, key string) bool {
	return false
}

// Get always misses.
func (c *NoOpCache) Get(ctx context.Context, endpoint, key string) ([]byte, error) {
	c.misses.Add(1)

	return nil, ErrCacheMiss
}

// Put discards the entry.
func (c *NoOpCache) Put(ctx context.Context, endpoint, key string, raw []byte) error {
	return nil
}

// Remove does nothing.
func (c *NoOpCache) Remove(ctx context.Context, endpoint, key string) error {
	return nil
}

// Clear does nothing.
func (c *NoOpCache) Clear(ctx context.Context, endpoint string) error {
	return nil
}

// Flush does nothing.
func (c *NoOpCache) Flush(ctx context.Context) error {
	return nil
}

// Stats reports only misses.
func (c *NoOpCache) Stats() CacheStats {
	return CacheStats{Misses: c.misses.Load()}
}

// Close does nothing.
func (c *NoOpCache) Close() error {
	return nil
}

package cache

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/maypok86/otter"
)

// DefaultMemoryCapacity is the default total size, in bytes, of a MemoryCache.
const DefaultMemoryCapacity = 64 << 20

// noExpiry stands in for a zero ttl, which otter does not accept.
const noExpiry = 100 * 365 * 24 * time.Hour

// MemoryCache is a bounded in-process cache backed by otter. Capacity is
// measured in bytes of cached data; otter evicts by S3-FIFO when full.
type MemoryCache struct {
	c otter.CacheWithVariableTTL[string, []byte]
}

// NewMemoryCache creates a cache holding at most capacity bytes.
func NewMemoryCache(capacity int) (*MemoryCache, error) {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	c, err := otter.MustBuilder[string, []byte](capacity).
		Cost(func(key string, value []byte) uint32 {
			return uint32(len(key) + len(value))
		}).
		WithVariableTTL().
		Build()
	if err != nil {
		return nil, fmt.Errorf("build memory cache: %w", err)
	}
	return &MemoryCache{c: c}, nil
}

// Get retrieves a value from the cache.
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// Set stores a value. Values larger than the whole cache are dropped silently.
func (m *MemoryCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = noExpiry
	}
	m.c.Set(key, slices.Clone(data), ttl)
	return nil
}

// Delete removes a value from the cache.
func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

// Len returns the number of cached entries.
func (m *MemoryCache) Len() int { return m.c.Size() }

// Close stops otter's background goroutines.
func (m *MemoryCache) Close() error {
	m.c.Close()
	return nil
}

var _ Cache = (*MemoryCache)(nil)

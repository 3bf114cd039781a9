package cache

import (
	"slices"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps vectors in process memory with a TTL
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a new memory cache. A zero ttl keeps entries forever.
func NewMemoryCache(ttl time.Duration, cleanupInterval time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryCache{
		cache: gocache.New(ttl, cleanupInterval),
	}
}

// Get retrieves a copy of a cached vector
func (c *MemoryCache) Get(key string) ([]float32, bool) {
	if val, found := c.cache.Get(key); found {
		if vec, ok := val.([]float32); ok {
			return slices.Clone(vec), true
		}
	}
	return nil, false
}

// Set stores a copy of vector under the default TTL
func (c *MemoryCache) Set(key string, vector []float32) {
	c.cache.SetDefault(key, slices.Clone(vector))
}

// Len returns the number of cached vectors, including expired ones not yet swept
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}

// Clear removes all vectors
func (c *MemoryCache) Clear() {
	c.cache.Flush()
}

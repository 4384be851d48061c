package cache

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process ResponseCache.
type MemoryCache struct {
	client *cache.Cache
}

// NewMemoryCache creates a new MemoryCache. The slot never expires.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		client: cache.New(cache.NoExpiration, 0),
	}
}

// Last returns the stored entry, if any.
func (c *MemoryCache) Last(ctx context.Context) (Entry, bool) {
	val, found := c.client.Get(lastResponseKey)
	if !found {
		return Entry{}, false
	}
	entry, ok := val.(Entry)
	return entry, ok
}

// Store replaces the stored entry.
func (c *MemoryCache) Store(ctx context.Context, entry Entry) {
	c.client.Set(lastResponseKey, entry, cache.NoExpiration)
}

package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/chatstack/intentd/engine/decision"
)

// MemoryCache is a bounded in-process decision cache. The expirable LRU
// evicts lazily on access once the TTL passes and caps total entries, so
// a retry storm cannot grow it without bound.
type MemoryCache struct {
	lru *expirable.LRU[string, decision.Decision]
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		lru: expirable.NewLRU[string, decision.Decision](size, nil, ttl),
	}
}

func (c *MemoryCache) Get(_ context.Context, key Key) (*decision.Decision, bool, error) {
	if !key.Valid() {
		return nil, false, nil
	}
	d, ok := c.lru.Get(key.String())
	if !ok {
		return nil, false, nil
	}
	return &d, true, nil
}

func (c *MemoryCache) Put(_ context.Context, key Key, d *decision.Decision) error {
	if !key.Valid() || d == nil {
		return nil
	}
	c.lru.Add(key.String(), *d)
	return nil
}

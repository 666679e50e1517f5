// Package cache holds scan results in memory for the lifetime of the process.
package cache

import (
	"sync"
	"time"

	"poolScope/internal/metrics"
	"poolScope/internal/model"
)

// LatestPoolsKey identifies the only cached query shape.
const LatestPoolsKey = "latest-pools"

const DefaultTTL = 60 * time.Second

// Entry is one cached result set.
type Entry struct {
	Pools     []model.EnrichedPool
	CreatedAt time.Time
}

// ResultCache is a last-write-wins TTL map. Concurrent misses may both
// recompute; the later Put replaces the earlier one.
type ResultCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]Entry
}

func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]Entry),
	}
}

// WithClock replaces the time source.
func (c *ResultCache) WithClock(now func() time.Time) *ResultCache {
	c.now = now
	return c
}

// Get returns the entry for key unless it is missing or at least TTL old.
func (c *ResultCache) Get(key string) (Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Sub(entry.CreatedAt) >= c.ttl {
		ok = false
	}
	metrics.ObserveCache(ok)
	if !ok {
		return Entry{}, false
	}
	return entry, true
}

// Put stores pools under key stamped with the current time and returns the entry.
func (c *ResultCache) Put(key string, pools []model.EnrichedPool) Entry {
	entry := Entry{Pools: pools, CreatedAt: c.now()}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return entry
}

func (c *ResultCache) TTL() time.Duration {
	return c.ttl
}

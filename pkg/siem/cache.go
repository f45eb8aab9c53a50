package siem

import (
	"context"
	"sync"
	"time"
)

// resultTTL is how long a cached query result remains valid.
const resultTTL = 5 * time.Minute

// memoryCache is a process-local Cache used in tests. Production wiring
// passes a KV-store backed Cache instead.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result    *QueryResult
	expiresAt time.Time
}

// NewMemoryCache builds an in-process, TTL-expiring Cache.
func NewMemoryCache() Cache {
	return &memoryCache{entries: make(map[string]cacheEntry)}
}

func (c *memoryCache) Get(_ context.Context, queryHash string) (*QueryResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[queryHash]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(c.entries, queryHash)
		return nil, false, nil
	}
	return entry.result, true, nil
}

func (c *memoryCache) Set(_ context.Context, queryHash string, result *QueryResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[queryHash] = cacheEntry{result: result, expiresAt: time.Now().Add(resultTTL)}
	return nil
}

// Purge removes expired entries so a long-running process doesn't
// accumulate a stale map indefinitely; Get already evicts lazily on lookup
// but an unqueried key would otherwise never be reclaimed.
func (c *memoryCache) Purge(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	removed := 0
	for hash, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, hash)
			removed++
		}
	}
	return removed, nil
}

package siem

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/caseforge/caseforge/pkg/kv"
)

// KVCache is the production Cache implementation, backed by the shared
// Redis-backed store.
type KVCache struct {
	store *kv.Store
}

// NewKVCache wraps a kv.Store as a siem query result Cache.
func NewKVCache(store *kv.Store) *KVCache {
	return &KVCache{store: store}
}

func cacheKey(queryHash string) string {
	return "siem:query:" + queryHash
}

// Get implements Cache.
func (c *KVCache) Get(ctx context.Context, queryHash string) (*QueryResult, bool, error) {
	raw, ok, err := c.store.Get(ctx, cacheKey(queryHash))
	if err != nil || !ok {
		return nil, false, err
	}
	var result QueryResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, false, fmt.Errorf("decode cached query result: %w", err)
	}
	return &result, true, nil
}

// Set implements Cache.
func (c *KVCache) Set(ctx context.Context, queryHash string, result *QueryResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode query result: %w", err)
	}
	return c.store.Set(ctx, cacheKey(queryHash), string(raw), resultTTL)
}

// Purge is a no-op: Redis expires keys on its own, so there is nothing for
// a caller-driven sweep to reclaim.
func (c *KVCache) Purge(_ context.Context) (int, error) {
	return 0, nil
}

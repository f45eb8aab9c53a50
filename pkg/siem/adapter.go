package siem

import "context"

// Adapter executes one event-filter query over a time range against a SIEM
// backend. Implementations own the wire protocol; the executor only knows
// this contract.
type Adapter interface {
	Query(ctx context.Context, eventFilter string, fromMS, toMS int64, limit int) (events []map[string]interface{}, totalCount int, err error)
}

// Cache stores successful query results keyed by query hash, with a TTL.
// Backed by the Redis-backed key-value store in production; an in-memory
// implementation is used in tests.
type Cache interface {
	Get(ctx context.Context, queryHash string) (*QueryResult, bool, error)
	Set(ctx context.Context, queryHash string, result *QueryResult) error
	// Purge evicts expired entries and returns how many were removed. A
	// Redis-backed Cache relies on native key expiry and can no-op.
	Purge(ctx context.Context) (int, error)
}

package similarity

import (
	"context"
	"time"
)

// keyValueStore is the subset of pkg/kv.Store the index and result cache
// need. Declared here so tests can substitute an in-memory fake instead of
// a real Redis connection.
type keyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

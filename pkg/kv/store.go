// Package kv provides a thin Redis-backed key-value store shared by the
// SIEM query cache, the similarity engine's entity inverted index, and its
// result cache.
package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store wraps a Redis client with the small surface the rest of the system
// needs: scalar get/set with TTL, and set membership for the inverted
// index.
type Store struct {
	client *redis.Client
}

// Config holds Redis connection parameters.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewStore connects to Redis. The connection is lazy; callers should Ping
// to verify connectivity at startup.
func NewStore(cfg Config) *Store {
	return &Store{client: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Get returns the raw value stored at key, or ok=false if absent.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value at key with the given TTL. A zero TTL means no
// expiration.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

// SetNX stores value at key with the given TTL only if key is not already
// set, returning false without error if another caller won the race. Used
// for reservation-style locks (e.g. idempotency keys) where two callers
// racing to claim the same key must not both succeed.
func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("kv setnx %s: %w", key, err)
	}
	return ok, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}

// SAdd adds members to the set at key and refreshes its TTL.
func (s *Store) SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	pipe := s.client.TxPipeline()
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	pipe.SAdd(ctx, key, args...)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("kv sadd %s: %w", key, err)
	}
	return nil
}

// SMembers returns all members of the set at key.
func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("kv smembers %s: %w", key, err)
	}
	return members, nil
}

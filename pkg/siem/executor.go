package siem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ExecutorConfig bounds the executor's concurrency and per-query timeout.
type ExecutorConfig struct {
	MaxConcurrentQueries int
	QueryTimeout         time.Duration
	QueryLimit           int
}

// DefaultExecutorConfig returns the documented defaults: 3 concurrent
// queries, a 30s per-query timeout, 1000-event page size.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrentQueries: defaultMaxConcurrentQueries,
		QueryTimeout:         defaultTimeout,
		QueryLimit:           defaultQueryLimit,
	}
}

// Executor runs eligible detections' queries against a SIEM backend with
// deduplication, a concurrency bound, per-query timeout, result caching,
// and fan-out back to the detection IDs that produced each query.
type Executor struct {
	adapter Adapter
	cache   Cache
	config  ExecutorConfig
}

// NewExecutor builds an Executor. cfg's zero value is replaced field-by-field
// with DefaultExecutorConfig's values.
func NewExecutor(adapter Adapter, cache Cache, cfg ExecutorConfig) *Executor {
	defaults := DefaultExecutorConfig()
	if cfg.MaxConcurrentQueries <= 0 {
		cfg.MaxConcurrentQueries = defaults.MaxConcurrentQueries
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaults.QueryTimeout
	}
	if cfg.QueryLimit <= 0 {
		cfg.QueryLimit = defaults.QueryLimit
	}
	return &Executor{adapter: adapter, cache: cache, config: cfg}
}

// Execute groups detections by event filter (widening the group's time
// windows into one min-from/max-to query), resolves each group against the cache or the
// backend under a bounded semaphore, and returns one QueryResult per group.
// The caller fans a result out to its SourceDetectionIDs as needed.
func (e *Executor) Execute(ctx context.Context, detections []Detection) []QueryResult {
	queries := groupByFilter(detections, e.config.QueryLimit)

	results := make([]QueryResult, len(queries))
	sem := make(chan struct{}, e.config.MaxConcurrentQueries)
	var wg sync.WaitGroup

	for i, q := range queries {
		wg.Add(1)
		go func(i int, q query) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = e.resolve(ctx, q)
		}(i, q)
	}
	wg.Wait()

	return results
}

func (e *Executor) resolve(ctx context.Context, q query) QueryResult {
	if cached, ok, err := e.cache.Get(ctx, q.hash); err == nil && ok {
		fanned := *cached
		fanned.SourceDetectionIDs = q.sourceDetectionIDs
		return fanned
	}

	queryCtx, cancel := context.WithTimeout(ctx, e.config.QueryTimeout)
	defer cancel()

	start := time.Now()
	events, totalCount, err := e.adapter.Query(queryCtx, q.eventFilter, q.fromMS, q.toMS, q.limit)
	elapsed := time.Since(start)

	result := QueryResult{
		QueryID:            q.hash,
		QueryHash:          q.hash,
		SourceDetectionIDs: q.sourceDetectionIDs,
		ExecutionTimeMS:    elapsed.Milliseconds(),
		Pagination:         PaginationInfo{Limit: q.limit},
	}

	if err != nil {
		result.Error = err.Error()
		result.Events = []map[string]interface{}{}
		return result
	}

	result.Events = events
	result.TotalCount = totalCount
	result.Pagination.HasMore = len(events) >= q.limit

	cacheable := result
	cacheable.SourceDetectionIDs = nil
	_ = e.cache.Set(ctx, q.hash, &cacheable)

	return result
}

// groupByFilter merges eligible detections sharing an event filter into one
// query, widening the time window to the group's min-from/max-to, and
// computes each group's deterministic query hash.
func groupByFilter(detections []Detection, limit int) []query {
	byFilter := make(map[string]*query)
	var order []string

	for _, d := range detections {
		q, ok := byFilter[d.EventFilter]
		if !ok {
			q = &query{
				eventFilter: d.EventFilter,
				fromMS:      d.EventFromMS,
				toMS:        d.EventToMS,
				limit:       limit,
			}
			byFilter[d.EventFilter] = q
			order = append(order, d.EventFilter)
		}
		q.widen(d)
	}

	sort.Strings(order)

	queries := make([]query, 0, len(order))
	for _, filter := range order {
		q := byFilter[filter]
		q.hash = queryHash(q.eventFilter, q.fromMS, q.toMS)
		queries = append(queries, *q)
	}
	return queries
}

// queryHash implements query_hash = SHA-256(event_filter||from_ms||to_ms)[:16].
func queryHash(eventFilter string, fromMS, toMS int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s||%d||%d", eventFilter, fromMS, toMS)))
	return hex.EncodeToString(sum[:])[:16]
}

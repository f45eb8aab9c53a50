package similarity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// maxConcurrentScoring bounds how many candidate bags are fetched and
// scored at once.
const maxConcurrentScoring = 8

// resultCacheTTL matches the documented 24h result cache lifetime.
const resultCacheTTL = 24 * time.Hour

// BagSource resolves a case id to its entity bag, for candidates discovered
// through the inverted index.
type BagSource interface {
	Bag(ctx context.Context, caseID string) (Bag, bool, error)
}

// Engine finds similar cases for a target entity bag.
type Engine struct {
	index  *Index
	cache  keyValueStore
	source BagSource
	config Config
}

// NewEngine builds an Engine. cfg's zero value is replaced with
// DefaultConfig's values field-by-field.
func NewEngine(index *Index, cache keyValueStore, source BagSource, cfg Config) *Engine {
	defaults := DefaultConfig()
	if cfg.Weights == (Weights{}) {
		cfg.Weights = defaults.Weights
	}
	if cfg.MinSimilarity == 0 {
		cfg.MinSimilarity = defaults.MinSimilarity
	}
	if cfg.Limit == 0 {
		cfg.Limit = defaults.Limit
	}
	if cfg.TimeWindow == 0 {
		cfg.TimeWindow = defaults.TimeWindow
	}
	if cfg.SameRuleBonus == 0 {
		cfg.SameRuleBonus = defaults.SameRuleBonus
	}
	if cfg.TimeWindowBonus == 0 {
		cfg.TimeWindowBonus = defaults.TimeWindowBonus
	}
	return &Engine{index: index, cache: cache, source: source, config: cfg}
}

// Find returns the top-k most similar cases to target, sorted by score
// descending. Results are cached per target bag.
func (e *Engine) Find(ctx context.Context, target Bag) ([]Match, error) {
	key := resultCacheKey(target)

	if cached, ok, err := e.getCached(ctx, key); err == nil && ok {
		return cached, nil
	}

	candidateIDs, err := e.index.Candidates(ctx, target, target.CaseID)
	if err != nil {
		return nil, fmt.Errorf("resolve candidates: %w", err)
	}

	matches := e.scoreAll(ctx, target, candidateIDs)

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > e.config.Limit {
		matches = matches[:e.config.Limit]
	}

	_ = e.setCached(ctx, key, matches)

	return matches, nil
}

func (e *Engine) scoreAll(ctx context.Context, target Bag, candidateIDs []string) []Match {
	sem := semaphore.NewWeighted(maxConcurrentScoring)
	var mu sync.Mutex
	var wg sync.WaitGroup
	var matches []Match

	for _, caseID := range candidateIDs {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(caseID string) {
			defer wg.Done()
			defer sem.Release(1)

			bag, ok, err := e.source.Bag(ctx, caseID)
			if err != nil || !ok {
				return
			}

			s := score(target, bag, e.config)
			if s < e.config.MinSimilarity {
				return
			}

			mu.Lock()
			matches = append(matches, Match{CaseID: caseID, Score: s})
			mu.Unlock()
		}(caseID)
	}
	wg.Wait()

	return matches
}

func resultCacheKey(target Bag) string {
	canonical, _ := canonicalBagJSON(target)
	sum := sha256.Sum256(append(canonical, []byte(target.CaseID)...))
	return "sim:result:" + hex.EncodeToString(sum[:])
}

// canonicalBagJSON round-trips the bag through a generic map so
// encoding/json's automatic key sorting produces a stable representation
// regardless of struct field order.
func canonicalBagJSON(bag Bag) ([]byte, error) {
	raw, err := json.Marshal(bag)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

func (e *Engine) getCached(ctx context.Context, key string) ([]Match, bool, error) {
	raw, ok, err := e.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var matches []Match
	if err := json.Unmarshal([]byte(raw), &matches); err != nil {
		return nil, false, err
	}
	return matches, true, nil
}

func (e *Engine) setCached(ctx context.Context, key string, matches []Match) error {
	raw, err := json.Marshal(matches)
	if err != nil {
		return err
	}
	return e.cache.Set(ctx, key, string(raw), resultCacheTTL)
}

package similarity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caseforge/caseforge/pkg/kv"
)

// indexTTL matches the documented 30-day retention for inverted-index
// membership: a case that stops being relevant ages out of candidate sets
// even if it's never explicitly removed.
const indexTTL = 30 * 24 * time.Hour

// Index maintains the entity-value -> case-ids inverted index that backs
// candidate lookup.
type Index struct {
	store keyValueStore
}

// NewIndex builds an Index over the shared key-value store.
func NewIndex(store keyValueStore) *Index {
	return &Index{store: store}
}

func indexKey(entityType, value string) string {
	return fmt.Sprintf("idx:entity:%s:%s", entityType, strings.ToLower(value))
}

// Commit adds caseID to the inverted index under every non-empty entity
// value in bag, refreshing each key's TTL.
func (idx *Index) Commit(ctx context.Context, bag Bag) error {
	groups := map[string][]string{
		"user":   bag.Users,
		"ip":     bag.IPs,
		"host":   bag.Hosts,
		"domain": bag.Domains,
	}
	for entityType, values := range groups {
		for _, v := range values {
			if v == "" {
				continue
			}
			if err := idx.store.SAdd(ctx, indexKey(entityType, v), indexTTL, bag.CaseID); err != nil {
				return fmt.Errorf("index entity %s=%s: %w", entityType, v, err)
			}
		}
	}
	return nil
}

// Rebuild re-commits every bag, refreshing its membership TTL. A case that
// stays active longer than indexTTL would otherwise silently age out of
// the candidate set for newer cases even though it's still open; a
// periodic rebuild over the currently active cases keeps it indexed.
func (idx *Index) Rebuild(ctx context.Context, bags []Bag) (int, error) {
	refreshed := 0
	for _, bag := range bags {
		if err := idx.Commit(ctx, bag); err != nil {
			return refreshed, fmt.Errorf("rebuild index for case %s: %w", bag.CaseID, err)
		}
		refreshed++
	}
	return refreshed, nil
}

// Candidates returns the union of case ids indexed under any value in
// target, excluding excludeCaseID.
func (idx *Index) Candidates(ctx context.Context, target Bag, excludeCaseID string) ([]string, error) {
	groups := map[string][]string{
		"user":   target.Users,
		"ip":     target.IPs,
		"host":   target.Hosts,
		"domain": target.Domains,
	}

	seen := make(map[string]struct{})
	var candidates []string

	for entityType, values := range groups {
		for _, v := range values {
			if v == "" {
				continue
			}
			members, err := idx.store.SMembers(ctx, indexKey(entityType, v))
			if err != nil {
				return nil, fmt.Errorf("candidates for %s=%s: %w", entityType, v, err)
			}
			for _, caseID := range members {
				if caseID == excludeCaseID {
					continue
				}
				if _, ok := seen[caseID]; ok {
					continue
				}
				seen[caseID] = struct{}{}
				candidates = append(candidates, caseID)
			}
		}
	}

	return candidates, nil
}

package similarity

import (
	"context"
	"fmt"
)

// Rebuild re-indexes every case in bags, refreshing TTLs and repairing any
// index entries lost to eviction or a cache flush. It does not remove
// indexed values that no longer appear in a case's current bag; values age
// out naturally via the index TTL instead.
func (e *Engine) Rebuild(ctx context.Context, bags []Bag) error {
	for _, bag := range bags {
		if err := e.index.Commit(ctx, bag); err != nil {
			return fmt.Errorf("rebuild case %s: %w", bag.CaseID, err)
		}
	}
	return nil
}

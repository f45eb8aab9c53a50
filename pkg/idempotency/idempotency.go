// Package idempotency guards a case enrichment submission against being
// run twice: a reservation is claimed before work starts, its outcome is
// cached once the work finishes, and a caller that races in behind an
// in-flight or already-finished operation is handed the prior result
// instead of starting a duplicate run.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/caseforge/caseforge/pkg/kv"
)

// Status is the state a reserved operation key is in.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// record is the JSON value stored under an operation's key.
type record struct {
	Status Status          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Cache reserves and resolves idempotency keys against the shared Redis
// store. In-progress and failed reservations expire quickly so a genuinely
// abandoned run doesn't permanently wedge its operation id; completed
// results are cached longer so a retried submission within the window
// replays the prior outcome instead of re-running the pipeline.
type Cache struct {
	store         *kv.Store
	inProgressTTL time.Duration
	completedTTL  time.Duration
}

// DefaultInProgressTTL bounds how long a reservation survives without a
// terminal Complete/Fail call, e.g. a worker that panicked mid-run.
const DefaultInProgressTTL = 5 * time.Minute

// DefaultCompletedTTL bounds how long a finished result is replayed to a
// duplicate submission before the key falls out of the cache and an
// identical request is treated as new work.
const DefaultCompletedTTL = time.Hour

// NewCache builds a Cache. A zero TTL argument falls back to its default.
func NewCache(store *kv.Store, inProgressTTL, completedTTL time.Duration) *Cache {
	if inProgressTTL <= 0 {
		inProgressTTL = DefaultInProgressTTL
	}
	if completedTTL <= 0 {
		completedTTL = DefaultCompletedTTL
	}
	return &Cache{store: store, inProgressTTL: inProgressTTL, completedTTL: completedTTL}
}

// OperationKey derives a deterministic idempotency key for operationName
// over params, so that two submissions with the same logical request
// (e.g. the same case id, autonomy level, and depth) collide on the same
// key regardless of call order.
func OperationKey(operationName string, params ...string) string {
	h := sha256.New()
	h.Write([]byte(operationName))
	for _, p := range params {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return "idempotent:" + operationName + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

// Reserve attempts to claim key for a new in-progress operation. found=true
// and status set means another caller already holds (or finished) this key
// — reserved will be false and the caller must not start duplicate work.
// When status is StatusCompleted, raw carries the cached JSON result.
func (c *Cache) Reserve(ctx context.Context, key string) (reserved bool, status Status, raw json.RawMessage, err error) {
	rec := record{Status: StatusInProgress}
	payload, err := json.Marshal(rec)
	if err != nil {
		return false, "", nil, fmt.Errorf("marshal idempotency reservation: %w", err)
	}

	ok, err := c.store.SetNX(ctx, key, string(payload), c.inProgressTTL)
	if err != nil {
		return false, "", nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return true, StatusInProgress, nil, nil
	}

	existing, found, err := c.store.Get(ctx, key)
	if err != nil {
		return false, "", nil, fmt.Errorf("load existing idempotency key: %w", err)
	}
	if !found {
		// Key expired between the failed SetNX and this Get; treat as won.
		return c.Reserve(ctx, key)
	}

	var existingRec record
	if err := json.Unmarshal([]byte(existing), &existingRec); err != nil {
		return false, "", nil, fmt.Errorf("decode existing idempotency record: %w", err)
	}
	return false, existingRec.Status, existingRec.Result, nil
}

// Complete marks key's operation finished and caches result (any
// JSON-marshalable value) for completedTTL so a retried submission within
// the window replays it instead of re-running.
func (c *Cache) Complete(ctx context.Context, key string, result interface{}) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal idempotency result: %w", err)
	}
	rec := record{Status: StatusCompleted, Result: raw}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal idempotency record: %w", err)
	}
	return c.store.Set(ctx, key, string(payload), c.completedTTL)
}

// Fail releases key's reservation with a short TTL, marking the operation
// failed rather than simply deleting the key outright — a caller racing in
// during that short window sees StatusFailed and can decide whether to
// retry immediately rather than silently re-running concurrently.
func (c *Cache) Fail(ctx context.Context, key string) error {
	rec := record{Status: StatusFailed}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal idempotency failure record: %w", err)
	}
	return c.store.Set(ctx, key, string(payload), c.inProgressTTL)
}

// KeyForCase builds the operation key for one case-enrichment submission,
// scoped to the request shape so a retried identical request collides
// while a differently-configured rerun (e.g. a deeper max_depth) does not.
func KeyForCase(caseID, autonomy string, maxDepth int, includeRawLogs bool) string {
	return OperationKey("enrich_case", caseID, autonomy, fmt.Sprintf("%d", maxDepth), fmt.Sprintf("%t", includeRawLogs))
}

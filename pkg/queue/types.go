// Package queue bounds how many case enrichment requests run concurrently
// and gives operators a way to cancel one in flight, adapted here from a
// DB-polled pending-work table to an
// in-process job channel, since a case enrichment request arrives and is
// answered synchronously over HTTP rather than queued for later pickup.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/caseforge/caseforge/pkg/models"
	"github.com/caseforge/caseforge/pkg/orchestrator"
)

// ErrAtCapacity is returned when the queue's buffered job channel is full.
var ErrAtCapacity = errors.New("queue: at capacity")

// ErrDuplicateInFlight is returned when Submit collides with an identical
// request already running under the same idempotency key.
var ErrDuplicateInFlight = errors.New("queue: identical request already in flight")

// Runner is the subset of *orchestrator.Orchestrator the queue needs.
// Declared here so this package doesn't need to import orchestrator's
// collaborator interfaces, mirroring the narrow-interface split already
// used between pkg/orchestrator and pkg/services.
type Runner interface {
	Run(ctx context.Context, caseID string, autonomy models.AutonomyLevel, maxDepth int, includeRawLogs bool) (*orchestrator.Result, error)
}

// Request describes one case enrichment job.
type Request struct {
	CaseID         string
	AutonomyLevel  models.AutonomyLevel
	MaxDepth       int
	IncludeRawLogs bool
}

// job pairs a Request with the channel its result is delivered on.
type job struct {
	ctx     context.Context
	req     Request
	resultC chan jobResult
	idemKey string // non-empty when this job holds an idempotency reservation to resolve
}

type jobResult struct {
	result *orchestrator.Result
	err    error
}

// Health reports the dispatcher's current load.
type Health struct {
	WorkerCount  int       `json:"worker_count"`
	QueueDepth   int       `json:"queue_depth"`
	QueueLimit   int       `json:"queue_limit"`
	ActiveCases  int       `json:"active_cases"`
	LastDispatch time.Time `json:"last_dispatch"`
}

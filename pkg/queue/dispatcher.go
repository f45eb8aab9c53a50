package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/caseforge/caseforge/pkg/config"
	"github.com/caseforge/caseforge/pkg/idempotency"
	"github.com/caseforge/caseforge/pkg/orchestrator"
)

// Dispatcher runs case enrichment requests across a fixed pool of worker
// goroutines. Jobs arrive directly from Submit rather than being polled
// off a pending-work table, since a case
// enrichment request is answered synchronously, not queued for later pickup.
type Dispatcher struct {
	cfg    config.QueueConfig
	runner Runner

	jobs chan *job
	wg   sync.WaitGroup

	mu           sync.RWMutex
	activeCases  map[string]context.CancelFunc
	started      bool
	lastDispatch time.Time

	idempotency *idempotency.Cache // optional; nil disables dedup of identical in-flight/recent requests
}

// NewDispatcher builds a Dispatcher. Start must be called before Submit.
func NewDispatcher(cfg config.QueueConfig, runner Runner) *Dispatcher {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = cfg.WorkerCount
	}
	return &Dispatcher{
		cfg:         cfg,
		runner:      runner,
		jobs:        make(chan *job, cfg.QueueDepth),
		activeCases: make(map[string]context.CancelFunc),
	}
}

// SetIdempotency wires a dedup cache into the dispatcher. Must be called
// before Start; a nil cache (the default) disables dedup entirely.
func (d *Dispatcher) SetIdempotency(cache *idempotency.Cache) {
	d.idempotency = cache
}

// Start spawns the worker goroutines. Safe to call once.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	slog.Info("starting case dispatcher", "worker_count", d.cfg.WorkerCount, "queue_depth", d.cfg.QueueDepth)
	for i := 0; i < d.cfg.WorkerCount; i++ {
		d.wg.Add(1)
		go d.runWorker(i)
	}
}

// Stop closes the job channel and waits for in-flight and already-queued
// jobs to finish. Callers must stop accepting new HTTP requests before
// calling Stop; Submit does not guard against a concurrent Stop.
func (d *Dispatcher) Stop() {
	close(d.jobs)
	d.wg.Wait()
}

// Submit enqueues a case enrichment request and blocks until it completes
// or the caller's context is cancelled; when the queue is full it returns
// ErrAtCapacity at once. When an
// idempotency cache is configured, a request identical to one already
// completed within the cache window replays that result without
// re-running the pipeline; a request identical to one still in flight
// returns ErrDuplicateInFlight instead of starting a second, redundant
// run of the same case.
func (d *Dispatcher) Submit(ctx context.Context, req Request) (*orchestrator.Result, error) {
	var idemKey string
	if d.idempotency != nil {
		idemKey = idempotency.KeyForCase(req.CaseID, string(req.AutonomyLevel), req.MaxDepth, req.IncludeRawLogs)
		reserved, status, raw, err := d.idempotency.Reserve(ctx, idemKey)
		if err != nil {
			slog.Warn("idempotency reserve failed, proceeding without dedup", "case_id", req.CaseID, "error", err)
			idemKey = ""
		} else if !reserved {
			switch status {
			case idempotency.StatusCompleted:
				var result orchestrator.Result
				if err := json.Unmarshal(raw, &result); err != nil {
					return nil, fmt.Errorf("decode cached idempotent result: %w", err)
				}
				return &result, nil
			case idempotency.StatusInProgress:
				return nil, ErrDuplicateInFlight
			case idempotency.StatusFailed:
				// A prior attempt failed; fall through and run again without
				// holding a reservation rather than retrying the race.
				idemKey = ""
			}
		}
	}

	j := &job{ctx: ctx, req: req, resultC: make(chan jobResult, 1), idemKey: idemKey}

	select {
	case d.jobs <- j:
	default:
		if idemKey != "" {
			_ = d.idempotency.Fail(ctx, idemKey)
		}
		return nil, ErrAtCapacity
	}

	select {
	case res := <-j.resultC:
		return res.result, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CancelCase cancels a currently running case's context, if this dispatcher
// is running it. Returns false if the case isn't active here.
func (d *Dispatcher) CancelCase(caseID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if cancel, ok := d.activeCases[caseID]; ok {
		cancel()
		return true
	}
	return false
}

// Health reports current load for the /health endpoint.
func (d *Dispatcher) Health() Health {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Health{
		WorkerCount:  d.cfg.WorkerCount,
		QueueDepth:   len(d.jobs),
		QueueLimit:   d.cfg.QueueDepth,
		ActiveCases:  len(d.activeCases),
		LastDispatch: d.lastDispatch,
	}
}

func (d *Dispatcher) runWorker(index int) {
	defer d.wg.Done()
	log := slog.With("worker", index)

	for j := range d.jobs {
		d.process(log, j)
	}
}

func (d *Dispatcher) process(log *slog.Logger, j *job) {
	deadline := d.cfg.RequestDeadline
	if deadline <= 0 {
		deadline = 10 * time.Minute
	}
	caseCtx, cancel := context.WithTimeout(j.ctx, deadline)
	defer cancel()

	d.mu.Lock()
	d.activeCases[j.req.CaseID] = cancel
	d.lastDispatch = time.Now()
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.activeCases, j.req.CaseID)
		d.mu.Unlock()
	}()

	log.Info("dispatching case", "case_id", j.req.CaseID, "autonomy", j.req.AutonomyLevel)

	result, err := d.runner.Run(caseCtx, j.req.CaseID, j.req.AutonomyLevel, j.req.MaxDepth, j.req.IncludeRawLogs)
	if err != nil {
		log.Error("case run failed", "case_id", j.req.CaseID, "error", err)
	}

	if j.idemKey != "" {
		// A fresh context, not caseCtx: the case's own deadline may already
		// be exhausted (that's often why it failed), but the idempotency
		// record still needs to be resolved so a retry isn't blocked
		// forever behind a stale in-progress reservation.
		finalizeCtx, finalizeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err != nil {
			if failErr := d.idempotency.Fail(finalizeCtx, j.idemKey); failErr != nil {
				log.Warn("idempotency fail-mark failed", "case_id", j.req.CaseID, "error", failErr)
			}
		} else if completeErr := d.idempotency.Complete(finalizeCtx, j.idemKey, result); completeErr != nil {
			log.Warn("idempotency complete-mark failed", "case_id", j.req.CaseID, "error", completeErr)
		}
		finalizeCancel()
	}

	select {
	case j.resultC <- jobResult{result: result, err: err}:
	default:
		// Caller already gave up (its ctx was cancelled); nothing to deliver.
	}
}

package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseforge/caseforge/pkg/config"
	"github.com/caseforge/caseforge/pkg/idempotency"
	"github.com/caseforge/caseforge/pkg/kv"
	"github.com/caseforge/caseforge/pkg/models"
	"github.com/caseforge/caseforge/pkg/orchestrator"
)

type fakeRunner struct {
	mu       sync.Mutex
	calls    []string
	block    chan struct{} // if non-nil, Run waits on it (or ctx.Done) before returning
	runFn    func(ctx context.Context, caseID string) (*orchestrator.Result, error)
	runCount int32
}

func (f *fakeRunner) Run(ctx context.Context, caseID string, autonomy models.AutonomyLevel, maxDepth int, includeRawLogs bool) (*orchestrator.Result, error) {
	atomic.AddInt32(&f.runCount, 1)
	f.mu.Lock()
	f.calls = append(f.calls, caseID)
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.runFn != nil {
		return f.runFn(ctx, caseID)
	}
	return &orchestrator.Result{CaseID: caseID, Status: models.CaseStatusCompleted}, nil
}

func TestDispatcher_Submit_ReturnsOrchestratorResult(t *testing.T) {
	runner := &fakeRunner{}
	d := NewDispatcher(config.QueueConfig{WorkerCount: 1, QueueDepth: 1, RequestDeadline: time.Second}, runner)
	d.Start()
	defer d.Stop()

	result, err := d.Submit(context.Background(), Request{CaseID: "case-1", AutonomyLevel: models.AutonomySupervised})
	require.NoError(t, err)
	assert.Equal(t, "case-1", result.CaseID)
	assert.Equal(t, models.CaseStatusCompleted, result.Status)
}

func TestDispatcher_Submit_PropagatesRunnerError(t *testing.T) {
	wantErr := assert.AnError
	runner := &fakeRunner{runFn: func(ctx context.Context, caseID string) (*orchestrator.Result, error) {
		return nil, wantErr
	}}
	d := NewDispatcher(config.QueueConfig{WorkerCount: 1, QueueDepth: 1, RequestDeadline: time.Second}, runner)
	d.Start()
	defer d.Stop()

	_, err := d.Submit(context.Background(), Request{CaseID: "case-1"})
	require.Error(t, err)
	assert.Equal(t, wantErr, err)
}

func TestDispatcher_Submit_AtCapacityReturnsError(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	d := NewDispatcher(config.QueueConfig{WorkerCount: 1, QueueDepth: 1, RequestDeadline: time.Minute}, runner)
	d.Start()
	defer func() {
		close(runner.block)
		d.Stop()
	}()

	// First submission occupies the sole worker; second fills the one-deep
	// queue; third should be rejected immediately.
	go func() { _, _ = d.Submit(context.Background(), Request{CaseID: "a"}) }()
	go func() { _, _ = d.Submit(context.Background(), Request{CaseID: "b"}) }()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&runner.runCount) >= 1
	}, time.Second, 10*time.Millisecond)

	deadline := time.Now().Add(200 * time.Millisecond)
	var err error
	for time.Now().Before(deadline) {
		_, err = d.Submit(context.Background(), Request{CaseID: "c"})
		if err == ErrAtCapacity {
			break
		}
	}
	assert.Equal(t, ErrAtCapacity, err)
}

func TestDispatcher_CancelCase_CancelsRunningJob(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	d := NewDispatcher(config.QueueConfig{WorkerCount: 1, QueueDepth: 1, RequestDeadline: time.Minute}, runner)
	d.Start()
	defer d.Stop()

	resultC := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background(), Request{CaseID: "case-cancel"})
		resultC <- err
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&runner.runCount) >= 1
	}, time.Second, 10*time.Millisecond)

	assert.True(t, d.CancelCase("case-cancel"))

	select {
	case err := <-resultC:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("expected cancellation to unblock Submit")
	}
}

func TestDispatcher_CancelCase_UnknownCaseReturnsFalse(t *testing.T) {
	d := NewDispatcher(config.QueueConfig{WorkerCount: 1, QueueDepth: 1}, &fakeRunner{})
	d.Start()
	defer d.Stop()

	assert.False(t, d.CancelCase("does-not-exist"))
}

func newTestIdemCache(t *testing.T) *idempotency.Cache {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	store := kv.NewStore(kv.Config{Addr: server.Addr()})
	t.Cleanup(func() { _ = store.Close() })
	return idempotency.NewCache(store, time.Minute, time.Hour)
}

func TestDispatcher_Submit_DuplicateInFlightRejected(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	d := NewDispatcher(config.QueueConfig{WorkerCount: 1, QueueDepth: 1, RequestDeadline: time.Minute}, runner)
	d.SetIdempotency(newTestIdemCache(t))
	d.Start()
	defer func() {
		close(runner.block)
		d.Stop()
	}()

	req := Request{CaseID: "case-dup", AutonomyLevel: models.AutonomySupervised}
	go func() { _, _ = d.Submit(context.Background(), req) }()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&runner.runCount) >= 1
	}, time.Second, 10*time.Millisecond)

	_, err := d.Submit(context.Background(), req)
	assert.Equal(t, ErrDuplicateInFlight, err)
}

func TestDispatcher_Submit_CompletedIdempotentRequestReplaysResult(t *testing.T) {
	runner := &fakeRunner{}
	d := NewDispatcher(config.QueueConfig{WorkerCount: 1, QueueDepth: 1, RequestDeadline: time.Second}, runner)
	d.SetIdempotency(newTestIdemCache(t))
	d.Start()
	defer d.Stop()

	req := Request{CaseID: "case-replay", AutonomyLevel: models.AutonomySupervised}

	first, err := d.Submit(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&runner.runCount))

	second, err := d.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.CaseID, second.CaseID)
	assert.Equal(t, first.Status, second.Status)
	// The second call must not have re-run the pipeline.
	assert.Equal(t, int32(1), atomic.LoadInt32(&runner.runCount))
}

func TestDispatcher_Submit_DistinctRequestsDoNotDedup(t *testing.T) {
	runner := &fakeRunner{}
	d := NewDispatcher(config.QueueConfig{WorkerCount: 1, QueueDepth: 1, RequestDeadline: time.Second}, runner)
	d.SetIdempotency(newTestIdemCache(t))
	d.Start()
	defer d.Stop()

	_, err := d.Submit(context.Background(), Request{CaseID: "case-a", AutonomyLevel: models.AutonomySupervised})
	require.NoError(t, err)
	_, err = d.Submit(context.Background(), Request{CaseID: "case-b", AutonomyLevel: models.AutonomySupervised})
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&runner.runCount))
}

func TestDispatcher_Health_ReportsConfiguredLimits(t *testing.T) {
	d := NewDispatcher(config.QueueConfig{WorkerCount: 3, QueueDepth: 7}, &fakeRunner{})

	health := d.Health()
	assert.Equal(t, 3, health.WorkerCount)
	assert.Equal(t, 7, health.QueueLimit)
	assert.Equal(t, 0, health.ActiveCases)
}

// Package agent provides the core agent framework for caseforge's pipeline
// stages. Agents read a versioned prompt, call the LLM adapter, parse the
// response into a stage-specific structured output, and append the result
// to the case's audit chain.
package agent

import (
	"context"

	"github.com/caseforge/caseforge/pkg/audit"
	"github.com/caseforge/caseforge/pkg/models"
)

// Agent defines the interface implemented by every pipeline stage.
// One instance per stage is built at startup and reused for every case.
type Agent interface {
	// Execute runs one stage's investigation.
	// ctx carries the case's timeout and cancellation signal.
	// execCtx provides all execution dependencies and state.
	// prevStageContext is the serialized output of the previous stage
	// (empty for the first stage in the pipeline).
	//
	// Returns (*ExecutionResult, nil) on completion — check Result.Status
	// and Result.Error for agent-level failures (LLM errors). Returns
	// (nil, error) only for infrastructure failures where no meaningful
	// result exists (e.g. the audit chain could not be written).
	Execute(ctx context.Context, execCtx *ExecutionContext, prevStageContext string) (*ExecutionResult, error)
}

// ExecutionStatus represents the outcome of one agent execution.
type ExecutionStatus string

const (
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusTimedOut  ExecutionStatus = "timed_out"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// ExecutionResult is returned by Agent.Execute.
type ExecutionResult struct {
	Status       ExecutionStatus
	Outputs      map[string]interface{}
	Observations []string
	TokensUsed   models.TokenUsage
	Step         *audit.Step
	Error        error
}

package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/caseforge/caseforge/pkg/audit"
	"github.com/caseforge/caseforge/pkg/llmclient"
	"github.com/caseforge/caseforge/pkg/models"
)

// Controller implements one pipeline stage's response parsing. BaseAgent
// owns the shared execute() steps (prompt resolution, the LLM call, audit
// append); the controller only knows how to turn raw model text into its
// stage's structured output.
type Controller interface {
	Stage() models.PipelineStage
	Role() string
	Parse(raw string) (outputs map[string]interface{}, observations []string)
}

// BaseAgent implements Agent by delegating response parsing to a Controller.
type BaseAgent struct {
	controller Controller
}

// NewBaseAgent creates an agent with the given stage controller.
// Panics if controller is nil (programming error in the factory).
func NewBaseAgent(controller Controller) *BaseAgent {
	if controller == nil {
		panic("NewBaseAgent: controller must not be nil")
	}
	return &BaseAgent{controller: controller}
}

// Execute implements Agent.Execute by running the steps of spec.md's agent
// contract: fetch the active prompt, format it, call the LLM, parse the
// response, and append an audit step — in that order, every time, so the
// budget-accounting invariant ("tokens recorded regardless of stage
// success or failure") holds even when the LLM call itself fails.
func (a *BaseAgent) Execute(ctx context.Context, execCtx *ExecutionContext, prevStageContext string) (*ExecutionResult, error) {
	info, err := execCtx.Prompts.GetInfo(ctx, execCtx.AgentName, "")
	if err != nil {
		return nil, fmt.Errorf("resolve active prompt for %s: %w", execCtx.AgentName, err)
	}
	promptText, err := execCtx.Prompts.Get(ctx, execCtx.AgentName, info.Version)
	if err != nil {
		return nil, fmt.Errorf("read prompt %s/%s: %w", execCtx.AgentName, info.Version, err)
	}

	formatted := execCtx.PromptBuilder.Format(promptText, execCtx.Inputs, prevStageContext)

	response, usage, llmErr := execCtx.LLMClient.Run(ctx, llmclient.Request{
		Model:             execCtx.Model,
		Prompt:            formatted,
		SystemInstruction: fmt.Sprintf("You are the %s agent (role: %s) in a SOC case-enrichment pipeline.", execCtx.AgentName, execCtx.AgentRole),
		MaxOutputTokens:   4096,
	})

	var outputs map[string]interface{}
	var observations []string
	if llmErr != nil {
		outputs = map[string]interface{}{}
		observations = []string{fmt.Sprintf("llm call failed: %v", llmErr)}
	} else {
		outputs, observations = a.controller.Parse(response)
	}

	tokens := models.TokenUsage{
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		TotalTokens:  usage.TotalTokens,
		CostUSD:      usage.CostUSD,
	}

	step, stepErr := execCtx.Audit.Append(ctx, audit.StepInput{
		CaseID:        execCtx.CaseID,
		AgentName:     execCtx.AgentName,
		AgentRole:     execCtx.AgentRole,
		Model:         execCtx.Model,
		PromptVersion: info.Version,
		AutonomyLevel: string(execCtx.AutonomyLevel),
		Inputs:        execCtx.Inputs,
		Observations:  toAnySlice(observations),
		Outputs:       outputs,
		Tokens: audit.TokenUsage{
			InputTokens:  tokens.InputTokens,
			OutputTokens: tokens.OutputTokens,
			TotalTokens:  tokens.TotalTokens,
			CostUSD:      tokens.CostUSD,
		},
	})
	if stepErr != nil {
		return nil, fmt.Errorf("append audit step for %s: %w", execCtx.AgentName, stepErr)
	}

	result := &ExecutionResult{
		Outputs:      outputs,
		Observations: observations,
		TokensUsed:   tokens,
		Step:         step,
	}

	switch {
	case llmErr == nil:
		result.Status = ExecutionStatusCompleted
	case errors.Is(llmErr, context.DeadlineExceeded):
		result.Status, result.Error = ExecutionStatusTimedOut, llmErr
	case errors.Is(llmErr, context.Canceled):
		result.Status, result.Error = ExecutionStatusCancelled, llmErr
	default:
		result.Status, result.Error = ExecutionStatusFailed, llmErr
	}

	return result, nil
}

func toAnySlice(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

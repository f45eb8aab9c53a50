package agent

import (
	"github.com/caseforge/caseforge/pkg/audit"
	"github.com/caseforge/caseforge/pkg/llmclient"
	"github.com/caseforge/caseforge/pkg/models"
	"github.com/caseforge/caseforge/pkg/prompts"
)

// ExecutionContext carries all dependencies and state needed by an agent
// during one stage execution. Built by the orchestrator for each stage.
type ExecutionContext struct {
	// Identity
	CaseID        string
	Stage         models.PipelineStage
	AgentName     string
	AgentRole     string
	Model         string
	AutonomyLevel models.AutonomyLevel

	// Inputs threaded in from upstream stages, keyed by the orchestrator's
	// artifact names (e.g. "entities", "kept_cases", "attack_story").
	Inputs map[string]interface{}

	// Dependencies (injected by the orchestrator)
	LLMClient     llmclient.Adapter
	Prompts       *prompts.Store
	Audit         *audit.Store
	PromptBuilder PromptBuilder
}

// PromptBuilder formats a stored prompt template plus the stage's inputs
// and prior-stage context into the text sent to the LLM. Implemented by
// pkg/agent/prompt.Builder; defined as an interface here to keep pkg/agent
// free of a direct dependency on that package's formatting internals.
type PromptBuilder interface {
	Format(promptText string, inputs map[string]interface{}, prevStageContext string) string
}

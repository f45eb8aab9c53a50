// Package stages implements one Controller per fixed pipeline stage,
// translating each stage's raw LLM response into the structured output
// contract named for that stage.
package stages

import (
	"github.com/caseforge/caseforge/pkg/agent"
	"github.com/caseforge/caseforge/pkg/models"
)

// Triage parses the triage agent's response.
type Triage struct{}

// NewTriage creates a Triage controller.
func NewTriage() *Triage { return &Triage{} }

// Stage implements agent.Controller.
func (Triage) Stage() models.PipelineStage { return models.StageTriage }

// Role implements agent.Controller.
func (Triage) Role() string { return "triage" }

// Parse implements agent.Controller.
func (Triage) Parse(raw string) (map[string]interface{}, []string) {
	outputs, observations := agent.ParseJSONObject(raw)
	agent.EnsureDefault(outputs, "severity", string(models.SeverityMedium))
	agent.EnsureDefault(outputs, "priority", 3)
	agent.EnsureDefault(outputs, "entities", []interface{}{})
	agent.EnsureDefault(outputs, "escalation_needed", false)
	agent.EnsureDefault(outputs, "initial_steps", []interface{}{})
	agent.EnsureDefault(outputs, "summary", "")
	agent.EnsureDefault(outputs, "hypotheses", []interface{}{})
	return outputs, observations
}

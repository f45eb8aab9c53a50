package stages

import (
	"github.com/caseforge/caseforge/pkg/agent"
	"github.com/caseforge/caseforge/pkg/models"
)

// Knowledge parses the knowledge agent's response. Unlike the other
// stages, it is not part of the fixed pipeline sequence — it runs
// on-demand from the knowledge ingest/search API surface.
type Knowledge struct{}

// NewKnowledge creates a Knowledge controller.
func NewKnowledge() *Knowledge { return &Knowledge{} }

// Stage implements agent.Controller.
func (Knowledge) Stage() models.PipelineStage { return models.StageKnowledge }

// Role implements agent.Controller.
func (Knowledge) Role() string { return "knowledge" }

// Parse implements agent.Controller.
func (Knowledge) Parse(raw string) (map[string]interface{}, []string) {
	outputs, observations := agent.ParseJSONObject(raw)
	agent.EnsureDefault(outputs, "operation", "retrieve")
	agent.EnsureDefault(outputs, "items", []interface{}{})
	return outputs, observations
}

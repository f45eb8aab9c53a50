package stages

import (
	"github.com/caseforge/caseforge/pkg/agent"
	"github.com/caseforge/caseforge/pkg/models"
)

// Response parses the response agent's response.
type Response struct{}

// NewResponse creates a Response controller.
func NewResponse() *Response { return &Response{} }

// Stage implements agent.Controller.
func (Response) Stage() models.PipelineStage { return models.StageResponse }

// Role implements agent.Controller.
func (Response) Role() string { return "response" }

// Parse implements agent.Controller.
func (Response) Parse(raw string) (map[string]interface{}, []string) {
	outputs, observations := agent.ParseJSONObject(raw)
	agent.EnsureDefault(outputs, "containment_actions", []interface{}{})
	agent.EnsureDefault(outputs, "remediation_steps", []interface{}{})
	agent.EnsureDefault(outputs, "monitoring_enhancements", []interface{}{})
	agent.EnsureDefault(outputs, "evidence_preservation", []interface{}{})
	agent.EnsureDefault(outputs, "priority_matrix", map[string]interface{}{})
	return outputs, observations
}

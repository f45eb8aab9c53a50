package stages

import (
	"github.com/caseforge/caseforge/pkg/agent"
	"github.com/caseforge/caseforge/pkg/models"
)

// Investigation parses the investigation agent's response.
type Investigation struct{}

// NewInvestigation creates an Investigation controller.
func NewInvestigation() *Investigation { return &Investigation{} }

// Stage implements agent.Controller.
func (Investigation) Stage() models.PipelineStage { return models.StageInvestigation }

// Role implements agent.Controller.
func (Investigation) Role() string { return "investigation" }

// Parse implements agent.Controller.
func (Investigation) Parse(raw string) (map[string]interface{}, []string) {
	outputs, observations := agent.ParseJSONObject(raw)
	agent.EnsureDefault(outputs, "siem_results", []interface{}{})
	agent.EnsureDefault(outputs, "timeline_events", []interface{}{})
	agent.EnsureDefault(outputs, "ioc_set", map[string]interface{}{
		"ips": []interface{}{}, "users": []interface{}{}, "hosts": []interface{}{},
		"domains": []interface{}{}, "hashes": []interface{}{},
	})
	agent.EnsureDefault(outputs, "correlation_findings", []interface{}{})
	agent.EnsureDefault(outputs, "attack_patterns", []interface{}{})
	return outputs, observations
}

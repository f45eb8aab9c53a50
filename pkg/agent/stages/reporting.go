package stages

import (
	"github.com/caseforge/caseforge/pkg/agent"
	"github.com/caseforge/caseforge/pkg/models"
)

// Reporting parses the reporting agent's response.
type Reporting struct{}

// NewReporting creates a Reporting controller.
func NewReporting() *Reporting { return &Reporting{} }

// Stage implements agent.Controller.
func (Reporting) Stage() models.PipelineStage { return models.StageReporting }

// Role implements agent.Controller.
func (Reporting) Role() string { return "reporting" }

// Parse implements agent.Controller.
func (Reporting) Parse(raw string) (map[string]interface{}, []string) {
	outputs, observations := agent.ParseJSONObject(raw)
	agent.EnsureDefault(outputs, "incident_report", "")
	agent.EnsureDefault(outputs, "executive_summary", "")
	agent.EnsureDefault(outputs, "technical_analysis", "")
	agent.EnsureDefault(outputs, "timeline", []interface{}{})
	agent.EnsureDefault(outputs, "iocs", map[string]interface{}{})
	agent.EnsureDefault(outputs, "recommendations", []interface{}{})
	agent.EnsureDefault(outputs, "report_metadata", map[string]interface{}{})
	return outputs, observations
}

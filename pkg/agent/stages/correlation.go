package stages

import (
	"github.com/caseforge/caseforge/pkg/agent"
	"github.com/caseforge/caseforge/pkg/models"
)

// Correlation parses the correlation agent's response.
type Correlation struct{}

// NewCorrelation creates a Correlation controller.
func NewCorrelation() *Correlation { return &Correlation{} }

// Stage implements agent.Controller.
func (Correlation) Stage() models.PipelineStage { return models.StageCorrelation }

// Role implements agent.Controller.
func (Correlation) Role() string { return "correlation" }

// Parse implements agent.Controller.
func (Correlation) Parse(raw string) (map[string]interface{}, []string) {
	outputs, observations := agent.ParseJSONObject(raw)
	agent.EnsureDefault(outputs, "attack_story", map[string]interface{}{
		"narrative": "", "phases": []interface{}{}, "duration_minutes": 0, "sophistication": "unknown",
	})
	agent.EnsureDefault(outputs, "mitre_mapping", map[string]interface{}{
		"tactics": []interface{}{}, "techniques": []interface{}{}, "kill_chain": []interface{}{},
	})
	agent.EnsureDefault(outputs, "threat_actor_profile", "")
	agent.EnsureDefault(outputs, "detection_gaps", []interface{}{})
	agent.EnsureDefault(outputs, "confidence_assessment", "")
	return outputs, observations
}

package stages

import (
	"github.com/caseforge/caseforge/pkg/agent"
	"github.com/caseforge/caseforge/pkg/models"
)

// Enrichment parses the enrichment agent's response.
type Enrichment struct{}

// NewEnrichment creates an Enrichment controller.
func NewEnrichment() *Enrichment { return &Enrichment{} }

// Stage implements agent.Controller.
func (Enrichment) Stage() models.PipelineStage { return models.StageEnrichment }

// Role implements agent.Controller.
func (Enrichment) Role() string { return "enrichment" }

// Parse implements agent.Controller.
func (Enrichment) Parse(raw string) (map[string]interface{}, []string) {
	outputs, observations := agent.ParseJSONObject(raw)
	agent.EnsureDefault(outputs, "related_items", []interface{}{})
	agent.EnsureDefault(outputs, "kept_cases", []interface{}{})
	agent.EnsureDefault(outputs, "skipped_cases", []interface{}{})
	agent.EnsureDefault(outputs, "enriched_entities", []interface{}{})
	agent.EnsureDefault(outputs, "rule_filter_summary", map[string]interface{}{
		"total": 0, "kept": 0, "skipped": 0,
	})
	return outputs, observations
}

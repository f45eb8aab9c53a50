package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/caseforge/caseforge/pkg/models"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// validate runs struct-tag validation over the sections listed below
// (telemetry and sla are not among them), then the
// handful of cross-field checks tags can't express (critical stage
// names, SIEM prefix/type lists). Sections are checked in field order
// so the first failure reported is the first one a reader would fix.
func validate(cfg *Config) error {
	sections := []struct {
		name  string
		value interface{}
	}{
		{"database", cfg.Database},
		{"redis", cfg.Redis},
		{"neo4j", cfg.Neo4j},
		{"vector_store", cfg.VectorStore},
		{"siem", cfg.SIEM},
		{"case_adapter", cfg.CaseAdapter},
		{"llm", cfg.LLM},
		{"audit", cfg.Audit},
		{"orchestrator", cfg.Orchestrator},
		{"retention", cfg.Retention},
		{"server", cfg.Server},
		{"reports", cfg.Reports},
		{"similarity", cfg.Similarity},
		{"queue", cfg.Queue},
	}

	for _, s := range sections {
		if err := structValidator.Struct(s.value); err != nil {
			return NewValidationError(s.name, "", err)
		}
	}

	if err := validateCriticalStages(cfg.Orchestrator.CriticalStages); err != nil {
		return NewValidationError("orchestrator", "critical_stages", err)
	}

	if err := validateSIEMLists(cfg.SIEM); err != nil {
		return NewValidationError("siem", "", err)
	}

	return nil
}

func validateCriticalStages(names []string) error {
	valid := make(map[string]bool, len(models.AllStages))
	for _, s := range models.AllStages {
		valid[string(s)] = true
	}
	for _, name := range names {
		if !valid[name] {
			return fmt.Errorf("unknown pipeline stage %q", name)
		}
	}
	return nil
}

func validateSIEMLists(cfg SIEMConfig) error {
	if len(cfg.PermittedPrefixes) == 0 && len(cfg.PermittedTypes) == 0 {
		return fmt.Errorf("at least one of permitted_prefixes or permitted_types must be set")
	}
	return nil
}

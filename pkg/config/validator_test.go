package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Database.DSN = "postgres://localhost/caseforge"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Neo4j.URI = "bolt://localhost:7687"
	cfg.Neo4j.Username = "neo4j"
	cfg.Neo4j.Password = "secret"
	cfg.VectorStore.Collection = "case_embeddings"
	cfg.VectorStore.Dimensions = 1536
	cfg.SIEM.BaseURL = "https://siem.internal"
	cfg.CaseAdapter.BaseURL = "https://cases.internal"
	cfg.LLM.APIKeyEnv = "ANTHROPIC_API_KEY"
	cfg.LLM.DefaultModel = "claude-sonnet-4"
	cfg.Server.Addr = ":8080"
	cfg.Reports.OutputDir = "./reports"
	return cfg
}

func TestValidate_AcceptsFullyPopulatedConfig(t *testing.T) {
	require.NoError(t, validate(validConfig()))
}

func TestValidate_MissingDatabaseDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Database.DSN = ""

	err := validate(cfg)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "database", valErr.Section)
}

func TestValidate_UnknownCriticalStageRejected(t *testing.T) {
	cfg := validConfig()
	cfg.Orchestrator.CriticalStages = []string{"triage", "not-a-stage"}

	err := validate(cfg)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "orchestrator", valErr.Section)
	assert.Equal(t, "critical_stages", valErr.Field)
}

func TestValidate_SIEMRequiresAtLeastOnePermittedList(t *testing.T) {
	cfg := validConfig()
	cfg.SIEM.PermittedPrefixes = nil
	cfg.SIEM.PermittedTypes = nil

	err := validate(cfg)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "siem", valErr.Section)
}

func TestValidate_NegativeSimilarityBonusRejected(t *testing.T) {
	cfg := validConfig()
	cfg.Similarity.SameRuleBonus = -0.1

	err := validate(cfg)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "similarity", valErr.Section)
}

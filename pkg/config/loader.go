package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// yamlConfig mirrors caseforge.yaml's on-disk shape. Kept distinct from
// Config so the zero-value-vs-unset distinction survives the mergo merge
// against defaultConfig().
type yamlConfig struct {
	Database     *DatabaseConfig     `yaml:"database"`
	Redis        *RedisConfig        `yaml:"redis"`
	Neo4j        *Neo4jConfig        `yaml:"neo4j"`
	VectorStore  *VectorStoreConfig  `yaml:"vector_store"`
	SIEM         *SIEMConfig         `yaml:"siem"`
	CaseAdapter  *CaseAdapterConfig  `yaml:"case_adapter"`
	LLM          *LLMConfig          `yaml:"llm"`
	Audit        *AuditConfig        `yaml:"audit"`
	Orchestrator *OrchestratorConfig `yaml:"orchestrator"`
	Retention    *RetentionConfig    `yaml:"retention"`
	Server       *ServerConfig       `yaml:"server"`
	Reports      *ReportConfig       `yaml:"reports"`
	Similarity   *SimilarityTuning   `yaml:"similarity"`
	Queue        *QueueConfig        `yaml:"queue"`
	Telemetry    *TelemetryConfig    `yaml:"telemetry"`
	SLA          *SLAConfig          `yaml:"sla"`
}

// Initialize loads caseforge.yaml from configDir, expands environment
// variables, merges it over the built-in defaults, and validates the
// result.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration initialized successfully")
	return cfg, nil
}

func load(configDir string) (*Config, error) {
	path := filepath.Join(configDir, "caseforge.yaml")

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewLoadError(path, ErrConfigNotFound)
		}
		return nil, NewLoadError(path, err)
	}

	expanded := ExpandEnv(raw)

	var fromFile yamlConfig
	if err := yaml.Unmarshal(expanded, &fromFile); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	cfg := defaultConfig()
	cfg.configDir = configDir

	if err := applyOverrides(cfg, &fromFile); err != nil {
		return nil, NewLoadError(path, err)
	}

	return cfg, nil
}

// applyOverrides merges each loaded section over its built-in default.
// Sections are merged independently (rather than merging the whole
// yamlConfig in one mergo.Merge call) so a YAML file that only sets, say,
// siem.base_url doesn't need to repeat every other section's defaults.
func applyOverrides(cfg *Config, fromFile *yamlConfig) error {
	if err := mergeSection("database", &cfg.Database, fromFile.Database); err != nil {
		return err
	}
	if err := mergeSection("redis", &cfg.Redis, fromFile.Redis); err != nil {
		return err
	}
	if err := mergeSection("neo4j", &cfg.Neo4j, fromFile.Neo4j); err != nil {
		return err
	}
	if err := mergeSection("vector_store", &cfg.VectorStore, fromFile.VectorStore); err != nil {
		return err
	}
	if err := mergeSection("siem", &cfg.SIEM, fromFile.SIEM); err != nil {
		return err
	}
	if err := mergeSection("case_adapter", &cfg.CaseAdapter, fromFile.CaseAdapter); err != nil {
		return err
	}
	if err := mergeSection("llm", &cfg.LLM, fromFile.LLM); err != nil {
		return err
	}
	if err := mergeSection("audit", &cfg.Audit, fromFile.Audit); err != nil {
		return err
	}
	if err := mergeSection("orchestrator", &cfg.Orchestrator, fromFile.Orchestrator); err != nil {
		return err
	}
	if err := mergeSection("retention", &cfg.Retention, fromFile.Retention); err != nil {
		return err
	}
	if err := mergeSection("server", &cfg.Server, fromFile.Server); err != nil {
		return err
	}
	if err := mergeSection("reports", &cfg.Reports, fromFile.Reports); err != nil {
		return err
	}
	if err := mergeSection("similarity", &cfg.Similarity, fromFile.Similarity); err != nil {
		return err
	}
	if err := mergeSection("queue", &cfg.Queue, fromFile.Queue); err != nil {
		return err
	}
	if err := mergeSection("telemetry", &cfg.Telemetry, fromFile.Telemetry); err != nil {
		return err
	}
	if err := mergeSection("sla", &cfg.SLA, fromFile.SLA); err != nil {
		return err
	}
	return nil
}

func mergeSection[T any](name string, dst *T, src *T) error {
	if src == nil {
		return nil
	}
	if err := mergo.Merge(dst, *src, mergo.WithOverride); err != nil {
		return fmt.Errorf("merge %s section: %w", name, err)
	}
	return nil
}

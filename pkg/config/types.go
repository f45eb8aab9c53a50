package config

import "time"

// DatabaseConfig configures the Postgres connection used by ent/pgx and
// golang-migrate.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" validate:"required"`
	MaxOpenConns    int           `yaml:"max_open_conns" validate:"omitempty,min=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"omitempty,min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig configures the KV store (case-derived cache and similarity
// inverted index), backed by go-redis.
type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"required"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db" validate:"omitempty,min=0"`
}

// Neo4jConfig configures the graph store.
type Neo4jConfig struct {
	URI      string `yaml:"uri" validate:"required"`
	Username string `yaml:"username" validate:"required"`
	Password string `yaml:"password" validate:"required"`
}

// VectorStoreConfig configures the pgvector-backed embedding collection.
type VectorStoreConfig struct {
	Collection string `yaml:"collection" validate:"required"`
	Dimensions int    `yaml:"dimensions" validate:"required,min=1"`
}

// SIEMConfig configures the eligibility filter and query executor.
type SIEMConfig struct {
	BaseURL              string        `yaml:"base_url" validate:"required"`
	APIKeyEnv            string        `yaml:"api_key_env,omitempty"`
	PermittedPrefixes    []string      `yaml:"permitted_prefixes"`
	PermittedTypes       []string      `yaml:"permitted_types"`
	MaxConcurrentQueries int           `yaml:"max_concurrent_queries" validate:"omitempty,min=1"`
	QueryTimeout         time.Duration `yaml:"query_timeout"`
	QueryLimit           int           `yaml:"query_limit" validate:"omitempty,min=1"`
}

// CaseAdapterConfig configures the upstream case-record backend.
type CaseAdapterConfig struct {
	BaseURL   string `yaml:"base_url" validate:"required"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// ModelPriceConfig is one model's per-million-token price, as loaded from
// YAML; converted into llmclient.PricingTable at startup.
type ModelPriceConfig struct {
	InputPerMillionUSD  float64 `yaml:"input_per_million_usd" validate:"min=0"`
	OutputPerMillionUSD float64 `yaml:"output_per_million_usd" validate:"min=0"`
}

// LLMConfig configures the LLM adapter and its pricing table.
type LLMConfig struct {
	APIKeyEnv    string                      `yaml:"api_key_env" validate:"required"`
	DefaultModel string                      `yaml:"default_model" validate:"required"`
	Pricing      map[string]ModelPriceConfig `yaml:"pricing,omitempty"`
}

// AuditConfig configures the audit chain's optional Ed25519 signing.
type AuditConfig struct {
	SigningEnabled bool   `yaml:"signing_enabled"`
	PrivateKeyEnv  string `yaml:"private_key_env,omitempty"`
}

// ApprovalTimeouts configures the approval gate's per-autonomy-level
// expiry window.
type ApprovalTimeouts struct {
	Default    time.Duration `yaml:"default"`
	Supervised time.Duration `yaml:"supervised"`
}

// OrchestratorConfig configures the pipeline's approval policy: which
// stages require an approval gate at each autonomy level.
type OrchestratorConfig struct {
	CriticalStages   []string         `yaml:"critical_stages"`
	ApprovalTimeouts ApprovalTimeouts `yaml:"approval_timeouts"`
}

// RetentionConfig controls data retention and periodic cleanup behavior:
// expiring stale pending approvals, trimming the SIEM result cache, and
// re-committing still-active cases to the similarity index.
type RetentionConfig struct {
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// ServerConfig configures the gin HTTP surface.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ReportConfig configures where finished-stage report artifacts are
// written on disk.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir" validate:"required"`
}

// SimilarityTuning exposes the similarity engine's weights and bonuses as
// configuration rather than hard-coded constants.
type SimilarityTuning struct {
	MinSimilarity   float64       `yaml:"min_similarity" validate:"min=0"`
	Limit           int           `yaml:"limit" validate:"omitempty,min=1"`
	TimeWindow      time.Duration `yaml:"time_window"`
	SameRuleBonus   float64       `yaml:"same_rule_bonus" validate:"min=0"`
	TimeWindowBonus float64       `yaml:"time_window_bonus" validate:"min=0"`
}

// QueueConfig bounds how many case enrichment requests run concurrently
// and how long one request is allowed to take end to end.
type QueueConfig struct {
	WorkerCount     int           `yaml:"worker_count" validate:"omitempty,min=1"`
	QueueDepth      int           `yaml:"queue_depth" validate:"omitempty,min=1"`
	RequestDeadline time.Duration `yaml:"request_deadline"`
}

// TelemetryConfig configures OpenTelemetry trace export. An empty
// OTLPEndpoint disables export and runs a no-op tracer provider.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
}

// SLATargetConfig names one pipeline stage's latency budget.
type SLATargetConfig struct {
	Stage              string        `yaml:"stage" validate:"required"`
	MaxDuration        time.Duration `yaml:"max_duration" validate:"required"`
	ViolationThreshold int           `yaml:"violation_threshold" validate:"omitempty,min=1"`
}

// SLAConfig configures per-stage latency budgets tracked by pkg/sla.
type SLAConfig struct {
	Targets []SLATargetConfig `yaml:"targets"`
}

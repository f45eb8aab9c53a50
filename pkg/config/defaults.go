package config

import "time"

// defaultConfig returns the built-in baseline, overridden by whatever the
// loaded YAML file sets. A single YAML file is merged over these defaults
// rather than a multi-registry merge, since this domain has no
// per-agent/per-chain fan-out to merge.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			DB: 0,
		},
		VectorStore: VectorStoreConfig{
			Collection: "knowledge_items",
			Dimensions: 384,
		},
		SIEM: SIEMConfig{
			PermittedPrefixes:    []string{"fact", "prof"},
			PermittedTypes:       []string{"factfeature", "profilefeature"},
			MaxConcurrentQueries: 3,
			QueryTimeout:         30 * time.Second,
			QueryLimit:           1000,
		},
		LLM: LLMConfig{
			DefaultModel: "claude-sonnet-4",
		},
		Orchestrator: OrchestratorConfig{
			CriticalStages: []string{"response", "investigation"},
			ApprovalTimeouts: ApprovalTimeouts{
				Default:    30 * time.Minute,
				Supervised: 15 * time.Minute,
			},
		},
		Retention: RetentionConfig{
			CleanupInterval: 1 * time.Hour,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		Reports: ReportConfig{
			OutputDir: "./reports",
		},
		Similarity: SimilarityTuning{
			MinSimilarity:   0.3,
			Limit:           10,
			TimeWindow:      48 * time.Hour,
			SameRuleBonus:   0.1,
			TimeWindowBonus: 0.1,
		},
		Queue: QueueConfig{
			WorkerCount:     4,
			QueueDepth:      32,
			RequestDeadline: 10 * time.Minute,
		},
		SLA: SLAConfig{
			Targets: []SLATargetConfig{
				{Stage: "triage", MaxDuration: 30 * time.Second, ViolationThreshold: 3},
				{Stage: "investigation", MaxDuration: 2 * time.Minute, ViolationThreshold: 3},
				{Stage: "response", MaxDuration: 90 * time.Second, ViolationThreshold: 3},
			},
		},
	}
}

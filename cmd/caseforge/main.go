// caseforge orchestrates LLM-driven SOC case enrichment: given a case id it
// fetches the raw case, runs it through the triage -> enrichment ->
// investigation -> correlation -> response -> reporting
// pipeline, and serves the result and audit trail over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/caseforge/caseforge/pkg/agent"
	"github.com/caseforge/caseforge/pkg/agent/prompt"
	"github.com/caseforge/caseforge/pkg/agent/stages"
	"github.com/caseforge/caseforge/pkg/api"
	"github.com/caseforge/caseforge/pkg/approval"
	"github.com/caseforge/caseforge/pkg/audit"
	"github.com/caseforge/caseforge/pkg/caseadapter"
	"github.com/caseforge/caseforge/pkg/cleanup"
	"github.com/caseforge/caseforge/pkg/config"
	"github.com/caseforge/caseforge/pkg/database"
	"github.com/caseforge/caseforge/pkg/entities"
	"github.com/caseforge/caseforge/pkg/graphstore"
	"github.com/caseforge/caseforge/pkg/idempotency"
	"github.com/caseforge/caseforge/pkg/kv"
	"github.com/caseforge/caseforge/pkg/llmclient"
	"github.com/caseforge/caseforge/pkg/models"
	"github.com/caseforge/caseforge/pkg/orchestrator"
	"github.com/caseforge/caseforge/pkg/prompts"
	"github.com/caseforge/caseforge/pkg/queue"
	"github.com/caseforge/caseforge/pkg/services"
	"github.com/caseforge/caseforge/pkg/siem"
	"github.com/caseforge/caseforge/pkg/similarity"
	"github.com/caseforge/caseforge/pkg/sla"
	"github.com/caseforge/caseforge/pkg/telemetry"
	"github.com/caseforge/caseforge/pkg/vectorstore"
	"github.com/caseforge/caseforge/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
		log.Printf("continuing with existing environment variables")
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	shutdownTracing, err := telemetry.InitTraceProvider(ctx, cfg.Telemetry.OTLPEndpoint, version.Full())
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("error shutting down trace provider: %v", err)
		}
	}()

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("error closing database client: %v", err)
		}
	}()
	log.Println("connected to PostgreSQL database")

	kvStore := kv.NewStore(kv.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := kvStore.Close(); err != nil {
			log.Printf("error closing redis client: %v", err)
		}
	}()

	vectorStore := vectorstore.NewStore(dbClient.DB(), cfg.VectorStore.Collection)
	if err := vectorStore.EnsureCollection(ctx, cfg.VectorStore.Dimensions, "cosine"); err != nil {
		log.Fatalf("failed to ensure vector collection: %v", err)
	}

	graphStore, err := graphstore.NewStore(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password)
	if err != nil {
		log.Fatalf("failed to connect to graph store: %v", err)
	}
	defer func() {
		if err := graphStore.Close(ctx); err != nil {
			log.Printf("error closing graph store: %v", err)
		}
	}()
	log.Println("connected to Neo4j graph store")

	caseAdapter := caseadapter.NewAdapter(cfg.CaseAdapter.BaseURL, envOrEmpty(cfg.CaseAdapter.APIKeyEnv))

	pricing := buildPricingTable(cfg.LLM.Pricing)
	llmAdapter := llmclient.NewAnthropicAdapter(envOrEmpty(cfg.LLM.APIKeyEnv), pricing)

	normalizer := entities.NewNormalizer()

	caseService := services.NewCaseService(dbClient.Client, graphStore)

	siemCache := siem.NewKVCache(kvStore)
	siemAdapter := siem.NewHTTPAdapter(cfg.SIEM.BaseURL, envOrEmpty(cfg.SIEM.APIKeyEnv))
	siemExecutor := siem.NewExecutor(siemAdapter, siemCache, siem.ExecutorConfig{
		MaxConcurrentQueries: cfg.SIEM.MaxConcurrentQueries,
		QueryTimeout:         cfg.SIEM.QueryTimeout,
		QueryLimit:           cfg.SIEM.QueryLimit,
	})
	eligibility := siem.EligibilityConfig{
		PermittedPrefixes: cfg.SIEM.PermittedPrefixes,
		PermittedTypes:    cfg.SIEM.PermittedTypes,
	}

	similarityIndex := similarity.NewIndex(kvStore)
	similarityEngine := similarity.NewEngine(similarityIndex, kvStore, caseService, similarity.Config{
		MinSimilarity:   cfg.Similarity.MinSimilarity,
		Limit:           cfg.Similarity.Limit,
		TimeWindow:      cfg.Similarity.TimeWindow,
		SameRuleBonus:   cfg.Similarity.SameRuleBonus,
		TimeWindowBonus: cfg.Similarity.TimeWindowBonus,
	})

	var signer *audit.Signer
	if cfg.Audit.SigningEnabled {
		signer, err = audit.NewSigner(envOrEmpty(cfg.Audit.PrivateKeyEnv))
		if err != nil {
			log.Fatalf("failed to load audit signing key: %v", err)
		}
	}
	auditStore := audit.NewStore(dbClient.Client, signer)
	promptStore := prompts.NewStore(dbClient.Client)
	approvalStore := approval.NewStore(dbClient.Client)

	reportService := services.NewReportService(dbClient.Client, cfg.Reports)
	statsService := services.NewStatsService(dbClient.Client)
	knowledgeService := services.NewKnowledgeService(vectorStore, graphStore)
	executionService := services.NewExecutionService(dbClient.Client)

	agents := map[models.PipelineStage]agent.Agent{
		models.StageTriage:        agent.NewBaseAgent(stages.NewTriage()),
		models.StageEnrichment:    agent.NewBaseAgent(stages.NewEnrichment()),
		models.StageInvestigation: agent.NewBaseAgent(stages.NewInvestigation()),
		models.StageCorrelation:   agent.NewBaseAgent(stages.NewCorrelation()),
		models.StageResponse:      agent.NewBaseAgent(stages.NewResponse()),
		models.StageReporting:     agent.NewBaseAgent(stages.NewReporting()),
		models.StageKnowledge:     agent.NewBaseAgent(stages.NewKnowledge()),
	}

	criticalStages := make([]models.PipelineStage, 0, len(cfg.Orchestrator.CriticalStages))
	for _, s := range cfg.Orchestrator.CriticalStages {
		criticalStages = append(criticalStages, models.PipelineStage(s))
	}

	slaTargets := make([]sla.Target, 0, len(cfg.SLA.Targets))
	for _, t := range cfg.SLA.Targets {
		slaTargets = append(slaTargets, sla.Target{
			Stage:              t.Stage,
			MaxDuration:        t.MaxDuration,
			ViolationThreshold: t.ViolationThreshold,
		})
	}
	slaTracker := sla.NewTracker(slaTargets, nil)

	orch := orchestrator.New(orchestrator.Config{
		Agents:         agents,
		Cases:          caseService,
		CaseFetcher:    caseAdapter,
		Normalizer:     normalizer,
		Similarity:     similarityEngine,
		SIEMExecutor:   siemExecutor,
		Eligibility:    eligibility,
		Approvals:      approvalStore,
		Audit:          auditStore,
		Prompts:        promptStore,
		LLMClient:      llmAdapter,
		PromptBuilder:  prompt.NewBuilder(),
		Reports:        reportService,
		Executions:     executionService,
		DefaultModel:   cfg.LLM.DefaultModel,
		CriticalStages: criticalStages,
		ApprovalTimeouts: orchestrator.ApprovalTimeouts{
			Default:    cfg.Orchestrator.ApprovalTimeouts.Default,
			Supervised: cfg.Orchestrator.ApprovalTimeouts.Supervised,
		},
		SLATracker: slaTracker,
	})

	dispatcher := queue.NewDispatcher(cfg.Queue, orch)
	dispatcher.SetIdempotency(idempotency.NewCache(kvStore, 0, 0))
	dispatcher.Start()
	defer dispatcher.Stop()
	log.Println("case enrichment dispatcher started")

	cleanupService := cleanup.NewService(approvalStore, cleanup.ScheduleFromInterval(cfg.Retention.CleanupInterval), siemCache, similarityIndex, caseService)
	cleanupService.Start(ctx)
	defer cleanupService.Stop()

	server := api.NewServer(api.Deps{
		Config:     cfg,
		DBClient:   dbClient,
		Dispatcher: dispatcher,
		Cases:      caseService,
		Reports:    reportService,
		Stats:      statsService,
		Knowledge:  knowledgeService,
		Audit:      auditStore,
		Prompts:    promptStore,
		Approvals:  approvalStore,
		SLA:        slaTracker,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	log.Printf("http server listening on %s", cfg.Server.Addr)

	select {
	case <-ctx.Done():
		log.Println("shutdown signal received")
	case err := <-errCh:
		log.Printf("http server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during server shutdown: %v", err)
	}
}

func envOrEmpty(key string) string {
	if key == "" {
		return ""
	}
	return os.Getenv(key)
}

func buildPricingTable(in map[string]config.ModelPriceConfig) llmclient.PricingTable {
	if len(in) == 0 {
		return llmclient.DefaultPricingTable()
	}
	out := make(llmclient.PricingTable, len(in))
	for model, price := range in {
		out[model] = llmclient.ModelPrice{
			InputPerMillionUSD:  price.InputPerMillionUSD,
			OutputPerMillionUSD: price.OutputPerMillionUSD,
		}
	}
	return out
}

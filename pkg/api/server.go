// Package api exposes caseforge's case-enrichment pipeline over HTTP.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/caseforge/caseforge/pkg/approval"
	"github.com/caseforge/caseforge/pkg/audit"
	"github.com/caseforge/caseforge/pkg/config"
	"github.com/caseforge/caseforge/pkg/database"
	"github.com/caseforge/caseforge/pkg/prompts"
	"github.com/caseforge/caseforge/pkg/queue"
	"github.com/caseforge/caseforge/pkg/services"
	"github.com/caseforge/caseforge/pkg/sla"
	"github.com/caseforge/caseforge/pkg/version"
)

// Server is the HTTP API surface over caseforge's stores and services.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	cfg        *config.Config

	dbClient   *database.Client
	dispatcher *queue.Dispatcher
	cases      *services.CaseService
	reports    *services.ReportService
	stats      *services.StatsService
	knowledge  *services.KnowledgeService
	audit      *audit.Store
	prompts    *prompts.Store
	approvals  *approval.Store
	sla        *sla.Tracker
}

// Deps groups Server's construction-time collaborators.
type Deps struct {
	Config     *config.Config
	DBClient   *database.Client
	Dispatcher *queue.Dispatcher
	Cases      *services.CaseService
	Reports    *services.ReportService
	Stats      *services.StatsService
	Knowledge  *services.KnowledgeService // nil disables /knowledge/* routes
	Audit      *audit.Store
	Prompts    *prompts.Store
	Approvals  *approval.Store
	SLA        *sla.Tracker // nil reports an empty snapshot list
}

// NewServer builds a Server and registers all routes.
func NewServer(deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(), securityHeaders())

	s := &Server{
		engine:     engine,
		cfg:        deps.Config,
		dbClient:   deps.DBClient,
		dispatcher: deps.Dispatcher,
		cases:      deps.Cases,
		reports:    deps.Reports,
		stats:      deps.Stats,
		knowledge:  deps.Knowledge,
		audit:      deps.Audit,
		prompts:    deps.Prompts,
		approvals:  deps.Approvals,
		sla:        deps.SLA,
	}

	s.setupRoutes()
	return s
}

// setupRoutes registers every route named in the external interface.
func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine.POST("/cases/:case_id/enrich", s.enrichCaseHandler)

	s.engine.GET("/audit/:case_id", s.getAuditTrailHandler)
	s.engine.GET("/audit/verify/:case_id", s.verifyAuditChainHandler)

	s.engine.GET("/prompts/:agent_name", s.getPromptHandler)
	s.engine.POST("/prompts/:agent_name", s.updatePromptHandler)
	s.engine.GET("/prompts/:agent_name/latest", s.getLatestPromptHandler)

	apiGroup := s.engine.Group("/api")
	apiGroup.GET("/cases/active", s.listActiveCasesHandler)
	apiGroup.GET("/cases/all", s.listAllCasesHandler)
	apiGroup.GET("/cases/:id/analysis", s.getCaseAnalysisHandler)
	apiGroup.GET("/cases/:id/reports", s.listCaseReportsHandler)
	apiGroup.GET("/reports/:id/download/:report_type", s.downloadReportHandler)

	apiGroup.GET("/approvals", s.listApprovalsHandler)
	apiGroup.GET("/approvals/stats", s.approvalStatsHandler)
	apiGroup.POST("/approvals/:id/decide", s.decideApprovalHandler)
	apiGroup.POST("/approvals/:id/approve", s.approveApprovalHandler)
	apiGroup.POST("/approvals/:id/reject", s.rejectApprovalHandler)

	apiGroup.GET("/stats/tokens", s.tokenStatsHandler)
	apiGroup.GET("/stats/sla", s.slaStatsHandler)

	if s.knowledge != nil {
		apiGroup.GET("/knowledge-graph", s.knowledgeGraphHandler)
		s.engine.POST("/knowledge/ingest", s.ingestKnowledgeHandler)
		s.engine.GET("/knowledge/search", s.searchKnowledgeHandler)
	}
}

// Start starts the HTTP server on the configured address (blocking).
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: otelhttp.NewHandler(s.engine, "caseforge.http"),
	}
	slog.Info("starting api server", "addr", s.cfg.Server.Addr)
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener. Used
// by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: otelhttp.NewHandler(s.engine, "caseforge.http")}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// healthHandler handles GET /health.
func (s *Server) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(reqCtx, s.dbClient.DB())
	status := http.StatusOK
	healthStatus := "healthy"
	if dbHealth != nil {
		healthStatus = dbHealth.Status
	}
	if err != nil {
		status = http.StatusServiceUnavailable
	} else if healthStatus == "degraded" {
		status = http.StatusOK
	}

	resp := HealthResponse{
		Status:   healthStatus,
		Version:  version.Full(),
		Database: dbHealth,
	}
	if s.dispatcher != nil {
		qh := s.dispatcher.Health()
		resp.Queue = &qh
	}
	c.JSON(status, resp)
}

package api

import (
	"time"

	"github.com/caseforge/caseforge/pkg/database"
	"github.com/caseforge/caseforge/pkg/queue"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string                  `json:"status"`
	Version  string                  `json:"version"`
	Database *database.HealthStatus  `json:"database,omitempty"`
	Queue    *queue.Health           `json:"queue,omitempty"`
}

// caseResponse is the JSON projection of a models.Case.
type caseResponse struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Severity             string    `json:"severity"`
	Status               string    `json:"status"`
	CurrentStep          string    `json:"current_step"`
	AutonomyLevel        string    `json:"autonomy_level"`
	ThreatClassification string    `json:"threat_classification,omitempty"`
	ActualCostUSD        float64   `json:"actual_cost_usd"`
	ActualTokens         int64     `json:"actual_tokens"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

// reportRefResponse names one report artifact.
type reportRefResponse struct {
	ID         string    `json:"id"`
	CaseID     string    `json:"case_id"`
	ReportType string    `json:"report_type"`
	FilePath   string    `json:"file_path"`
	CreatedAt  time.Time `json:"created_at"`
}

// approvalResponse is the JSON projection of an approval.Approval.
type approvalResponse struct {
	ID          string     `json:"id"`
	CaseID      string     `json:"case_id"`
	Stage       string     `json:"stage"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	DecidedBy   *string    `json:"decided_by,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	Reason      *string    `json:"reason,omitempty"`
}

// tokenStatsResponse is returned by GET /api/stats/tokens.
type tokenStatsResponse struct {
	TotalCases   int     `json:"total_cases"`
	TotalTokens  int64   `json:"total_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// approvalStatsResponse is returned by GET /api/approvals/stats.
type approvalStatsResponse struct {
	Pending             int    `json:"pending"`
	Approved            int    `json:"approved"`
	Rejected            int    `json:"rejected"`
	Expired             int    `json:"expired"`
	Total               int    `json:"total"`
	AverageDecisionWait string `json:"average_decision_wait"`
}

// slaSnapshotResponse is one entry in GET /api/stats/sla.
type slaSnapshotResponse struct {
	Stage               string `json:"stage"`
	MaxDuration         string `json:"max_duration"`
	ConsecutiveBreaches int    `json:"consecutive_breaches"`
}

// knowledgeHitResponse is one search result from the knowledge store.
type knowledgeHitResponse struct {
	ID      string                 `json:"id"`
	Score   float64                `json:"score"`
	Payload map[string]interface{} `json:"payload"`
}

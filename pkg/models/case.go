package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CaseStatus mirrors the lifecycle of a Case entity.
type CaseStatus string

const (
	CaseStatusPending   CaseStatus = "pending"
	CaseStatusAnalyzing CaseStatus = "analyzing"
	CaseStatusCompleted CaseStatus = "completed"
	CaseStatusFailed    CaseStatus = "failed"
	CaseStatusPartial   CaseStatus = "partial"
)

// AutonomyLevel selects the approval policy applied by the orchestrator.
type AutonomyLevel string

const (
	AutonomyManual     AutonomyLevel = "manual"
	AutonomySupervised AutonomyLevel = "supervised"
	AutonomyAutonomous AutonomyLevel = "autonomous"
	AutonomyResearch   AutonomyLevel = "research"
)

// Severity is the shared severity scale used by alerts, cases and triage output.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// PipelineStage names one of the fixed orchestrator stages.
type PipelineStage string

const (
	StageTriage        PipelineStage = "triage"
	StageEnrichment    PipelineStage = "enrichment"
	StageInvestigation PipelineStage = "investigation"
	StageCorrelation   PipelineStage = "correlation"
	StageResponse      PipelineStage = "response"
	StageReporting     PipelineStage = "reporting"
	StageKnowledge     PipelineStage = "knowledge"
)

// AllStages is insertion order for the full (max_depth > 1) pipeline.
var AllStages = []PipelineStage{
	StageTriage, StageEnrichment, StageInvestigation,
	StageCorrelation, StageResponse, StageReporting,
}

// Case is the in-memory projection of a REL case row plus its entity bag.
type Case struct {
	ID                 string
	Title              string
	Description        string
	Severity           Severity
	Status             CaseStatus
	CurrentStep        PipelineStage
	AutonomyLevel      AutonomyLevel
	Entities           EntityBag
	ThreatClassification string
	ActualCostUSD      float64
	ActualTokens       int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CompletedAt        *time.Time
}

// TokenUsage aggregates token consumption and priced cost for a single LLM call.
type TokenUsage struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalTokens  int64   `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Add returns the element-wise sum of two TokenUsage values. Cost is summed
// via decimal arithmetic and rounded to 6 decimals so a case with many
// stages doesn't accumulate float64 rounding drift in its running total.
func (t TokenUsage) Add(o TokenUsage) TokenUsage {
	cost := decimal.NewFromFloat(t.CostUSD).Add(decimal.NewFromFloat(o.CostUSD)).Round(6)
	costUSD, _ := cost.Float64()
	return TokenUsage{
		InputTokens:  t.InputTokens + o.InputTokens,
		OutputTokens: t.OutputTokens + o.OutputTokens,
		TotalTokens:  t.TotalTokens + o.TotalTokens,
		CostUSD:      costUSD,
	}
}

// AlertSummary is the read-only KV-sourced alert projection.
type AlertSummary struct {
	AlertID     string
	Title       string
	Description string
	Severity    Severity
	CreatedAt   time.Time
	Entities    EntityBag
	RawData     map[string]interface{}
}

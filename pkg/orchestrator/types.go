// Package orchestrator drives a case through the fixed pipeline of agent
// stages, enforcing the autonomy level's approval policy and threading each
// stage's output into the next stage's input.
package orchestrator

import (
	"context"
	"time"

	"github.com/caseforge/caseforge/pkg/audit"
	"github.com/caseforge/caseforge/pkg/caseadapter"
	"github.com/caseforge/caseforge/pkg/models"
)

// CaseStore is the subset of case persistence the orchestrator needs.
// Implemented by pkg/services.CaseService; declared here so this package
// doesn't import the service layer.
type CaseStore interface {
	Get(ctx context.Context, caseID string) (*models.Case, error)
	SetStatus(ctx context.Context, caseID string, status models.CaseStatus, completedAt *time.Time) error
	SetCurrentStep(ctx context.Context, caseID string, stage models.PipelineStage) error
	AddUsage(ctx context.Context, caseID string, usage models.TokenUsage) error
	SetEntities(ctx context.Context, caseID string, bag models.EntityBag) error
}

// CaseFetcher resolves case ids to their raw upstream payload. Implemented
// by *caseadapter.Adapter.
type CaseFetcher interface {
	FetchCases(ctx context.Context, ids []string) []caseadapter.RawCase
}

// ReportWriter persists one finished-stage report artifact and returns
// where it was written. Implemented by pkg/services.ReportService.
type ReportWriter interface {
	Persist(ctx context.Context, caseID, reportType string, content map[string]interface{}) (path string, err error)
}

// ExecutionRecorder tracks one agent execution per stage dispatch, giving
// operators a per-stage timeline independent of the audit trail (which
// only records stages that actually produced a step). Implemented by
// pkg/services.ExecutionService; nil disables recording, Run proceeds
// unaffected.
type ExecutionRecorder interface {
	// RecordStart opens an execution row for stage and returns its id.
	RecordStart(ctx context.Context, caseID string, stage models.PipelineStage) (executionID string, err error)
	// RecordFinish closes executionID with a terminal status ("completed",
	// "failed", "skipped", "approval_denied", "timed_out"), optionally
	// linking the audit step it produced and/or an error message.
	RecordFinish(ctx context.Context, executionID, status, stepID, errMsg string) error
}

// ReportRef names one persisted report artifact.
type ReportRef struct {
	Type string
	Path string
}

// ApprovalTimeouts configures how long the orchestrator waits for a
// decision before expiring a pending approval, per autonomy level.
type ApprovalTimeouts struct {
	Default    time.Duration
	Supervised time.Duration
}

// Result is the structured outcome of one Run call.
type Result struct {
	CaseID               string
	Status               models.CaseStatus
	Entities             models.EntityBag
	RelatedCases         []string
	TotalCostUSD         float64
	TotalTokens          int64
	AuditTrail           []*audit.Step
	StepsCount           int
	PipelineResults      map[string]map[string]interface{}
	FinalReport          map[string]interface{}
	TriageAssessment     map[string]interface{}
	InvestigationSummary map[string]interface{}
	AttackStory          map[string]interface{}
	ContainmentActions   []interface{}
	IOCSet               models.IOCSet
	Reports              []ReportRef
}

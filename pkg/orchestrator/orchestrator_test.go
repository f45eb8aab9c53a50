package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseforge/caseforge/pkg/agent"
	"github.com/caseforge/caseforge/pkg/audit"
	"github.com/caseforge/caseforge/pkg/caseadapter"
	"github.com/caseforge/caseforge/pkg/models"
	"github.com/caseforge/caseforge/pkg/siem"
	"github.com/caseforge/caseforge/pkg/similarity"
)

type fakeCaseStore struct {
	cases    map[string]*models.Case
	entities map[string]models.EntityBag
	usage    map[string]models.TokenUsage
}

func newFakeCaseStore(caseID string) *fakeCaseStore {
	return &fakeCaseStore{
		cases: map[string]*models.Case{
			caseID: {ID: caseID, Status: models.CaseStatusPending, CreatedAt: time.Unix(0, 0)},
		},
		entities: map[string]models.EntityBag{},
		usage:    map[string]models.TokenUsage{},
	}
}

func (f *fakeCaseStore) Get(_ context.Context, caseID string) (*models.Case, error) {
	c, ok := f.cases[caseID]
	if !ok {
		return nil, assert.AnError
	}
	return c, nil
}

func (f *fakeCaseStore) SetStatus(_ context.Context, caseID string, status models.CaseStatus, _ *time.Time) error {
	f.cases[caseID].Status = status
	return nil
}

func (f *fakeCaseStore) SetCurrentStep(_ context.Context, _ string, _ models.PipelineStage) error {
	return nil
}

func (f *fakeCaseStore) AddUsage(_ context.Context, caseID string, usage models.TokenUsage) error {
	f.usage[caseID] = f.usage[caseID].Add(usage)
	return nil
}

func (f *fakeCaseStore) SetEntities(_ context.Context, caseID string, bag models.EntityBag) error {
	f.entities[caseID] = bag
	return nil
}

type fakeCaseFetcher struct {
	byID map[string]caseadapter.RawCase
}

func (f *fakeCaseFetcher) FetchCases(_ context.Context, ids []string) []caseadapter.RawCase {
	out := make([]caseadapter.RawCase, 0, len(ids))
	for _, id := range ids {
		if rc, ok := f.byID[id]; ok {
			out = append(out, rc)
		}
	}
	return out
}

type fakeSimilarity struct {
	matches []similarity.Match
}

func (f *fakeSimilarity) Find(_ context.Context, _ similarity.Bag) ([]similarity.Match, error) {
	return f.matches, nil
}

type fakeSIEMRunner struct {
	results []siem.QueryResult
}

func (f *fakeSIEMRunner) Execute(_ context.Context, _ []siem.Detection) []siem.QueryResult {
	return f.results
}

type fakeReportWriter struct {
	persisted []string
}

func (f *fakeReportWriter) Persist(_ context.Context, caseID, reportType string, _ map[string]interface{}) (string, error) {
	f.persisted = append(f.persisted, caseID+"/"+reportType)
	return "/reports/" + caseID + "/" + reportType + ".json", nil
}

// fakeAgent returns a canned ExecutionResult and records the inputs it saw.
type fakeAgent struct {
	outputs   map[string]interface{}
	status    agent.ExecutionStatus
	err       error
	lastInput map[string]interface{}
}

func (a *fakeAgent) Execute(_ context.Context, execCtx *agent.ExecutionContext, _ string) (*agent.ExecutionResult, error) {
	a.lastInput = execCtx.Inputs
	if a.err != nil {
		return nil, a.err
	}
	status := a.status
	if status == "" {
		status = agent.ExecutionStatusCompleted
	}
	return &agent.ExecutionResult{
		Status:     status,
		Outputs:    a.outputs,
		TokensUsed: models.TokenUsage{TotalTokens: 10, CostUSD: 0.01},
		Step:       &audit.Step{StepID: "step-1", CaseID: execCtx.CaseID, AgentName: execCtx.AgentName},
	}, nil
}

func baseConfig(caseID string, agents map[models.PipelineStage]agent.Agent) (Config, *fakeCaseStore) {
	store := newFakeCaseStore(caseID)
	return Config{
		Agents:      agents,
		Cases:       store,
		CaseFetcher: &fakeCaseFetcher{byID: map[string]caseadapter.RawCase{caseID: {ID: caseID, Title: "t"}}},
		Eligibility: siem.EligibilityConfig{},
		DefaultModel: "claude-sonnet-4",
	}, store
}

func TestRun_MaxDepthOneRunsOnlyTriageAndEnrichment(t *testing.T) {
	const caseID = "case-1"
	agents := map[models.PipelineStage]agent.Agent{
		models.StageTriage:     &fakeAgent{outputs: map[string]interface{}{"severity": "high"}},
		models.StageEnrichment: &fakeAgent{outputs: map[string]interface{}{"kept_cases": []interface{}{}}},
	}
	cfg, store := baseConfig(caseID, agents)
	o := New(cfg)

	result, err := o.Run(context.Background(), caseID, models.AutonomyAutonomous, 1, false)
	require.NoError(t, err)

	assert.Equal(t, models.CaseStatusCompleted, result.Status)
	assert.Len(t, result.PipelineResults, 2)
	assert.Contains(t, result.PipelineResults, string(models.StageTriage))
	assert.Contains(t, result.PipelineResults, string(models.StageEnrichment))
	assert.NotContains(t, result.PipelineResults, string(models.StageInvestigation))
	assert.Equal(t, models.CaseStatusCompleted, store.cases[caseID].Status)
}

func TestRun_FullDepthRunsAllSixStages(t *testing.T) {
	const caseID = "case-2"
	agents := map[models.PipelineStage]agent.Agent{}
	for _, s := range fixedStages {
		agents[s] = &fakeAgent{outputs: map[string]interface{}{}}
	}
	cfg, _ := baseConfig(caseID, agents)
	o := New(cfg)

	result, err := o.Run(context.Background(), caseID, models.AutonomyAutonomous, 5, false)
	require.NoError(t, err)

	assert.Equal(t, models.CaseStatusCompleted, result.Status)
	assert.Len(t, result.PipelineResults, len(fixedStages))
}

func TestRun_StageFailureYieldsPartialStatusAndContinues(t *testing.T) {
	const caseID = "case-3"
	agents := map[models.PipelineStage]agent.Agent{
		models.StageTriage:        &fakeAgent{outputs: map[string]interface{}{}},
		models.StageEnrichment:    &fakeAgent{err: assert.AnError},
		models.StageInvestigation: &fakeAgent{outputs: map[string]interface{}{}},
		models.StageCorrelation:   &fakeAgent{outputs: map[string]interface{}{}},
		models.StageResponse:      &fakeAgent{outputs: map[string]interface{}{}},
		models.StageReporting:     &fakeAgent{outputs: map[string]interface{}{}},
	}
	cfg, _ := baseConfig(caseID, agents)
	o := New(cfg)

	result, err := o.Run(context.Background(), caseID, models.AutonomyAutonomous, 5, false)
	require.NoError(t, err)

	assert.Equal(t, models.CaseStatusPartial, result.Status)
	assert.Equal(t, "error", result.PipelineResults[string(models.StageEnrichment)]["status"])
	// downstream stages still ran against default-initialized artifacts
	assert.Contains(t, result.PipelineResults, string(models.StageInvestigation))
}

func TestRun_AllStagesFailYieldsFailedStatus(t *testing.T) {
	const caseID = "case-4"
	agents := map[models.PipelineStage]agent.Agent{
		models.StageTriage:     &fakeAgent{err: assert.AnError},
		models.StageEnrichment: &fakeAgent{err: assert.AnError},
	}
	cfg, _ := baseConfig(caseID, agents)
	o := New(cfg)

	result, err := o.Run(context.Background(), caseID, models.AutonomyAutonomous, 1, false)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusFailed, result.Status)
}

func TestRun_UnknownCaseReturnsError(t *testing.T) {
	cfg, _ := baseConfig("missing", map[models.PipelineStage]agent.Agent{})
	o := New(cfg)

	_, err := o.Run(context.Background(), "does-not-exist", models.AutonomyAutonomous, 1, false)
	require.Error(t, err)
}

func TestRequiresApproval_ManualGatesEveryStageResearchGatesCheckpoints(t *testing.T) {
	const caseID = "case-5"
	agents := map[models.PipelineStage]agent.Agent{
		models.StageTriage:     &fakeAgent{outputs: map[string]interface{}{}},
		models.StageEnrichment: &fakeAgent{outputs: map[string]interface{}{}},
	}
	cfg, _ := baseConfig(caseID, agents)
	o := New(cfg)
	// Only the approval policy is checked here; Run is not called, so no
	// approval store is needed.
	o.approvals = nil

	assert.True(t, o.requiresApproval(models.StageTriage, models.AutonomyManual))
	assert.False(t, o.requiresApproval(models.StageTriage, models.AutonomyAutonomous))
	assert.True(t, o.requiresApproval(models.StageResponse, models.AutonomyResearch))
	assert.True(t, o.requiresApproval(models.StageCorrelation, models.AutonomyResearch))
	assert.False(t, o.requiresApproval(models.StageTriage, models.AutonomyResearch))
}

func TestRun_SupervisedAutonomyGatesOnlyCriticalStages(t *testing.T) {
	cfg, _ := baseConfig("case-6", map[models.PipelineStage]agent.Agent{})
	cfg.CriticalStages = []models.PipelineStage{models.StageResponse}
	o := New(cfg)

	assert.True(t, o.requiresApproval(models.StageResponse, models.AutonomySupervised))
	assert.False(t, o.requiresApproval(models.StageTriage, models.AutonomySupervised))
}

func TestRun_InvestigationSIEMResultsSurviveIntoCorrelationInputs(t *testing.T) {
	const caseID = "case-7"
	siemRunner := &fakeSIEMRunner{results: []siem.QueryResult{{QueryID: "q1", TotalCount: 3}}}

	correlationAgent := &fakeAgent{outputs: map[string]interface{}{}}
	agents := map[models.PipelineStage]agent.Agent{
		models.StageTriage:     &fakeAgent{outputs: map[string]interface{}{}},
		models.StageEnrichment: &fakeAgent{outputs: map[string]interface{}{}},
		// The investigation agent's own parsed output echoes an empty
		// siem_results field, as stages.Investigation.Parse's EnsureDefault
		// would produce when the LLM omits it.
		models.StageInvestigation: &fakeAgent{outputs: map[string]interface{}{"siem_results": []interface{}{}}},
		models.StageCorrelation:   correlationAgent,
		models.StageResponse:      &fakeAgent{outputs: map[string]interface{}{}},
		models.StageReporting:     &fakeAgent{outputs: map[string]interface{}{}},
	}
	cfg, _ := baseConfig(caseID, agents)
	cfg.SIEMExecutor = siemRunner
	cfg.CaseFetcher = &fakeCaseFetcher{byID: map[string]caseadapter.RawCase{
		caseID: {
			ID: caseID,
			Detections: []caseadapter.RawDetection{
				{ID: "d1", RuleName: "suspicious-login", EventFilter: "x", EventFromMS: 1000, EventToMS: 2000},
			},
		},
	}}
	cfg.Eligibility.PermittedPrefixes = []string{"suspicious"}
	o := New(cfg)

	_, err := o.Run(context.Background(), caseID, models.AutonomyAutonomous, 5, false)
	require.NoError(t, err)

	got, ok := correlationAgent.lastInput["siem_results"].([]siem.QueryResult)
	require.True(t, ok, "correlation should see the orchestrator-computed siem_results, not the agent's echoed empty slice")
	assert.Equal(t, siemRunner.results, got)
}

func TestRun_EnrichmentReceivesSimilarityCandidates(t *testing.T) {
	const caseID = "case-8"
	const relatedID = "case-related"

	enrichmentAgent := &fakeAgent{outputs: map[string]interface{}{}}
	agents := map[models.PipelineStage]agent.Agent{
		models.StageTriage:     &fakeAgent{outputs: map[string]interface{}{}},
		models.StageEnrichment: enrichmentAgent,
	}
	cfg, _ := baseConfig(caseID, agents)
	cfg.Similarity = &fakeSimilarity{matches: []similarity.Match{{CaseID: relatedID, Score: 0.9}}}
	cfg.CaseFetcher = &fakeCaseFetcher{byID: map[string]caseadapter.RawCase{
		caseID:    {ID: caseID, Title: "primary"},
		relatedID: {ID: relatedID, Title: "related"},
	}}
	o := New(cfg)

	_, err := o.Run(context.Background(), caseID, models.AutonomyAutonomous, 1, false)
	require.NoError(t, err)

	candidates, ok := enrichmentAgent.lastInput["related_candidates"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, candidates, 1)
	assert.Equal(t, relatedID, candidates[0]["case_id"])
	assert.Equal(t, 0.9, candidates[0]["similarity_score"])
}

func TestRun_ReportingPersistsNamedReportSections(t *testing.T) {
	const caseID = "case-9"
	fullAgents := map[models.PipelineStage]agent.Agent{}
	for _, s := range fixedStages {
		fullAgents[s] = &fakeAgent{outputs: map[string]interface{}{}}
	}
	fullAgents[models.StageReporting] = &fakeAgent{outputs: map[string]interface{}{
		"incident_report":     "full incident narrative",
		"executive_summary":   "short summary",
		"technical_analysis":  map[string]interface{}{"detail": "deep"},
		"timeline":            []interface{}{},
	}}
	cfg, _ := baseConfig(caseID, fullAgents)
	writer := &fakeReportWriter{}
	cfg.Reports = writer
	o := New(cfg)

	result, err := o.Run(context.Background(), caseID, models.AutonomyAutonomous, 5, false)
	require.NoError(t, err)

	assert.Len(t, result.Reports, 3)
	assert.ElementsMatch(t,
		[]string{caseID + "/incident_report", caseID + "/executive_summary", caseID + "/technical_analysis"},
		writer.persisted,
	)
}

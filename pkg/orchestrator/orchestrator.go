package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/caseforge/caseforge/pkg/agent"
	"github.com/caseforge/caseforge/pkg/approval"
	"github.com/caseforge/caseforge/pkg/audit"
	"github.com/caseforge/caseforge/pkg/caseadapter"
	"github.com/caseforge/caseforge/pkg/entities"
	"github.com/caseforge/caseforge/pkg/llmclient"
	"github.com/caseforge/caseforge/pkg/models"
	"github.com/caseforge/caseforge/pkg/prompts"
	"github.com/caseforge/caseforge/pkg/siem"
	"github.com/caseforge/caseforge/pkg/similarity"
	"github.com/caseforge/caseforge/pkg/telemetry"
)

// SLATracker records how long one stage took against its configured
// latency target. Implemented by *sla.Tracker; nil disables SLA
// observation entirely.
type SLATracker interface {
	Observe(stage string, d time.Duration)
}

// fixedStages is the depth-2+ pipeline, in order. A max_depth of 1 stops
// after enrichment.
var fixedStages = []models.PipelineStage{
	models.StageTriage, models.StageEnrichment,
	models.StageInvestigation, models.StageCorrelation,
	models.StageResponse, models.StageReporting,
}

// SimilarityFinder resolves a target entity bag to related existing cases.
// Implemented by *similarity.Engine; nil disables enrichment's related-case
// lookup (enrichment still runs, with an empty candidate set).
type SimilarityFinder interface {
	Find(ctx context.Context, target similarity.Bag) ([]similarity.Match, error)
}

// SIEMRunner executes eligible detections' queries. Implemented by
// *siem.Executor; nil disables investigation's SIEM fan-out (investigation
// still runs, with no siem_results).
type SIEMRunner interface {
	Execute(ctx context.Context, detections []siem.Detection) []siem.QueryResult
}

// Orchestrator drives a case through the fixed stage pipeline.
type Orchestrator struct {
	agents        map[models.PipelineStage]agent.Agent
	cases         CaseStore
	caseFetcher   CaseFetcher
	normalizer    *entities.Normalizer
	similarity    SimilarityFinder
	siemExecutor  SIEMRunner
	eligibility   siem.EligibilityConfig
	approvals     *approval.Store
	audit         *audit.Store
	prompts       *prompts.Store
	llmClient     llmclient.Adapter
	promptBuilder agent.PromptBuilder
	reports       ReportWriter
	executions    ExecutionRecorder
	slaTracker    SLATracker // optional; nil disables SLA latency observation

	defaultModel     string
	criticalStages   map[models.PipelineStage]bool
	approvalTimeouts ApprovalTimeouts
}

// Config groups Orchestrator's construction-time dependencies and policy.
type Config struct {
	Agents           map[models.PipelineStage]agent.Agent
	Cases            CaseStore
	CaseFetcher      CaseFetcher
	Normalizer       *entities.Normalizer
	Similarity       SimilarityFinder
	SIEMExecutor     SIEMRunner
	Eligibility      siem.EligibilityConfig
	Approvals        *approval.Store
	Audit            *audit.Store
	Prompts          *prompts.Store
	LLMClient        llmclient.Adapter
	PromptBuilder    agent.PromptBuilder
	Reports          ReportWriter
	Executions       ExecutionRecorder
	SLATracker       SLATracker
	DefaultModel     string
	CriticalStages   []models.PipelineStage
	ApprovalTimeouts ApprovalTimeouts
}

// New builds an Orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	critical := make(map[models.PipelineStage]bool, len(cfg.CriticalStages))
	for _, s := range cfg.CriticalStages {
		critical[s] = true
	}
	return &Orchestrator{
		agents:           cfg.Agents,
		cases:            cfg.Cases,
		caseFetcher:      cfg.CaseFetcher,
		normalizer:       cfg.Normalizer,
		similarity:       cfg.Similarity,
		siemExecutor:     cfg.SIEMExecutor,
		eligibility:      cfg.Eligibility,
		approvals:        cfg.Approvals,
		audit:            cfg.Audit,
		prompts:          cfg.Prompts,
		llmClient:        cfg.LLMClient,
		promptBuilder:    cfg.PromptBuilder,
		reports:          cfg.Reports,
		executions:       cfg.Executions,
		slaTracker:       cfg.SLATracker,
		defaultModel:     cfg.DefaultModel,
		criticalStages:   critical,
		approvalTimeouts: cfg.ApprovalTimeouts,
	}
}

// Run drives caseID through triage → enrichment, and through investigation
// → correlation → response → reporting when maxDepth > 1. Any uncaught
// failure from a stage does not abort the run: the orchestrator continues
// with downstream stages against default-initialized artifacts, and
// reports the case as partial or failed rather than returning an error —
// the request always returns a usable (possibly partial) Result. Run
// returns a non-nil error only for infrastructure failures that leave no
// meaningful Result (e.g. the case row itself cannot be loaded or updated).
func (o *Orchestrator) Run(ctx context.Context, caseID string, autonomy models.AutonomyLevel, maxDepth int, includeRawLogs bool) (*Result, error) {
	caseRecord, err := o.cases.Get(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("load case %s: %w", caseID, err)
	}
	if err := o.cases.SetStatus(ctx, caseID, models.CaseStatusAnalyzing, nil); err != nil {
		return nil, fmt.Errorf("mark case %s analyzing: %w", caseID, err)
	}

	rawCases := o.caseFetcher.FetchCases(ctx, []string{caseID})
	var rawCase caseadapter.RawCase
	if len(rawCases) > 0 {
		rawCase = rawCases[0]
	}

	_, bag := o.normalizer.Normalize(rawCase.Fields)

	artifacts := map[string]interface{}{
		"case_id":          caseID,
		"raw_case":         rawCase,
		"include_raw_logs": includeRawLogs,
		"entities":         bag,
		"created_at":       caseRecord.CreatedAt,
	}

	stages := fixedStages[:2]
	if maxDepth > 1 {
		stages = fixedStages
	}

	run := &runState{
		pipelineResults: make(map[string]map[string]interface{}, len(stages)),
	}

	for _, stage := range stages {
		if ctx.Err() != nil {
			run.anyFailed = true
			break
		}

		o.runStage(ctx, caseID, stage, autonomy, artifacts, run)
	}

	status := models.CaseStatusCompleted
	switch {
	case run.anyFailed && run.anySucceeded:
		status = models.CaseStatusPartial
	case run.anyFailed && !run.anySucceeded:
		status = models.CaseStatusFailed
	}

	completedAt := time.Now()
	if err := o.cases.SetStatus(ctx, caseID, status, &completedAt); err != nil {
		return nil, fmt.Errorf("finalize case %s status: %w", caseID, err)
	}
	if err := o.cases.SetEntities(ctx, caseID, bag); err != nil {
		return nil, fmt.Errorf("persist entities for case %s: %w", caseID, err)
	}

	return o.buildResult(caseID, status, bag, artifacts, run), nil
}

// runState accumulates progress across the stage loop.
type runState struct {
	pipelineResults map[string]map[string]interface{}
	auditTrail      []*audit.Step
	totalUsage      models.TokenUsage
	anyFailed       bool
	anySucceeded    bool
	prevContext     string
}

// runStage executes (or gates, or skips) one stage and folds its outcome
// into run and artifacts. Errors that would abort the whole case are
// logged into the stage's pipeline result rather than propagated, per the
// "partial result on failure" contract.
func (o *Orchestrator) runStage(ctx context.Context, caseID string, stage models.PipelineStage, autonomy models.AutonomyLevel, artifacts map[string]interface{}, run *runState) {
	ctx, span := telemetry.StartStageSpan(ctx, caseID, string(stage), string(autonomy))
	stageStart := time.Now()

	var executionID, stepID, execErr string
	execStatus := "completed"
	defer func() {
		telemetry.EndStageSpan(span, execStatus)
		if o.slaTracker != nil {
			o.slaTracker.Observe(string(stage), time.Since(stageStart))
		}
	}()
	if o.executions != nil {
		if id, err := o.executions.RecordStart(ctx, caseID, stage); err == nil {
			executionID = id
		}
	}
	defer func() {
		if o.executions != nil && executionID != "" {
			_ = o.executions.RecordFinish(ctx, executionID, execStatus, stepID, execErr)
		}
	}()

	inputs := o.buildStageInputs(ctx, stage, artifacts)

	approved, err := o.gate(ctx, caseID, stage, autonomy)
	if err != nil {
		run.anyFailed = true
		execStatus, execErr = "failed", err.Error()
		run.pipelineResults[string(stage)] = map[string]interface{}{"status": "error", "error": err.Error()}
		return
	}
	if !approved {
		run.anyFailed = true
		execStatus = "approval_denied"
		run.pipelineResults[string(stage)] = map[string]interface{}{"status": "skipped", "reason": "approval not granted"}
		return
	}

	ag, ok := o.agents[stage]
	if !ok {
		run.anyFailed = true
		execStatus, execErr = "failed", fmt.Sprintf("no agent registered for stage %s", stage)
		run.pipelineResults[string(stage)] = map[string]interface{}{"status": "error", "error": fmt.Sprintf("no agent registered for stage %s", stage)}
		return
	}

	if err := o.cases.SetCurrentStep(ctx, caseID, stage); err != nil {
		run.anyFailed = true
		execStatus, execErr = "failed", err.Error()
		run.pipelineResults[string(stage)] = map[string]interface{}{"status": "error", "error": err.Error()}
		return
	}

	execCtx := &agent.ExecutionContext{
		CaseID:        caseID,
		Stage:         stage,
		AgentName:     string(stage),
		AgentRole:     string(stage),
		Model:         o.defaultModel,
		AutonomyLevel: autonomy,
		Inputs:        inputs,
		LLMClient:     o.llmClient,
		Prompts:       o.prompts,
		Audit:         o.audit,
		PromptBuilder: o.promptBuilder,
	}

	result, err := ag.Execute(ctx, execCtx, run.prevContext)
	if err != nil {
		run.anyFailed = true
		execStatus, execErr = "failed", err.Error()
		run.pipelineResults[string(stage)] = map[string]interface{}{"status": "error", "error": err.Error()}
		return
	}

	if result.Step != nil {
		run.auditTrail = append(run.auditTrail, result.Step)
		stepID = result.Step.StepID
	}
	run.totalUsage = run.totalUsage.Add(result.TokensUsed)
	if err := o.cases.AddUsage(ctx, caseID, result.TokensUsed); err != nil {
		run.anyFailed = true
		execStatus, execErr = "failed", err.Error()
		run.pipelineResults[string(stage)] = map[string]interface{}{"status": "error", "error": err.Error()}
		return
	}

	run.pipelineResults[string(stage)] = result.Outputs
	if result.Status == agent.ExecutionStatusCompleted {
		run.anySucceeded = true
		execStatus = "completed"
	} else {
		run.anyFailed = true
		execStatus = "failed"
		if result.Status == agent.ExecutionStatusTimedOut {
			execStatus = "timed_out"
		}
		if result.Error != nil {
			execErr = result.Error.Error()
		}
	}

	for k, v := range result.Outputs {
		artifacts[k] = v
	}
	run.prevContext = summarizeForContext(result.Outputs)
}

// buildStageInputs assembles one stage's inputs from upstream artifacts,
// default-initializing anything missing to an empty structure, and runs
// the deterministic retrieval work (similarity search, SIEM execution)
// that stage needs real data for rather than an LLM guess.
func (o *Orchestrator) buildStageInputs(ctx context.Context, stage models.PipelineStage, artifacts map[string]interface{}) map[string]interface{} {
	switch stage {
	case models.StageTriage:
		return map[string]interface{}{
			"case_id":          artifacts["case_id"],
			"raw_case":         artifacts["raw_case"],
			"include_raw_logs": artifacts["include_raw_logs"],
			"entities":         artifacts["entities"],
		}

	case models.StageEnrichment:
		related, breakdown := o.resolveRelatedCases(ctx, artifacts)
		return map[string]interface{}{
			"entities":              artifacts["entities"],
			"related_candidates":    related,
			"eligibility_breakdown": breakdown,
		}

	case models.StageInvestigation:
		keptCases := getOrDefault(artifacts, "kept_cases", []interface{}{})
		siemResults := o.resolveSIEMResults(ctx, artifacts)
		// Stored under a key the investigation agent's own output never
		// uses, so the post-execution artifact merge in runStage can't
		// clobber the real query results with the agent's echoed/defaulted
		// "siem_results" field before correlation reads them back.
		artifacts["siem_results_actual"] = siemResults
		return map[string]interface{}{
			"entities":     artifacts["entities"],
			"kept_cases":   keptCases,
			"siem_results": siemResults,
		}

	case models.StageCorrelation:
		return map[string]interface{}{
			"siem_results":         getOrDefault(artifacts, "siem_results_actual", []siem.QueryResult{}),
			"timeline_events":      getOrDefault(artifacts, "timeline_events", []interface{}{}),
			"ioc_set":              getOrDefault(artifacts, "ioc_set", models.IOCSet{}),
			"attack_patterns":      getOrDefault(artifacts, "attack_patterns", []interface{}{}),
			"correlation_findings": getOrDefault(artifacts, "correlation_findings", []interface{}{}),
		}

	case models.StageResponse:
		return map[string]interface{}{
			"attack_story":  getOrDefault(artifacts, "attack_story", map[string]interface{}{}),
			"mitre_mapping": getOrDefault(artifacts, "mitre_mapping", map[string]interface{}{}),
			"ioc_set":       getOrDefault(artifacts, "ioc_set", models.IOCSet{}),
		}

	case models.StageReporting:
		snapshot := make(map[string]interface{}, len(artifacts))
		for k, v := range artifacts {
			snapshot[k] = v
		}
		return snapshot

	default:
		return map[string]interface{}{}
	}
}

// resolveRelatedCases looks up similar existing cases for the enrichment
// stage and fetches their raw payload, and computes the current case's
// detection eligibility breakdown. Both are real retrieval/filtering work,
// not an LLM guess; the enrichment agent judges relevance and summarizes
// over this real data.
func (o *Orchestrator) resolveRelatedCases(ctx context.Context, artifacts map[string]interface{}) ([]map[string]interface{}, siem.EligibilityBreakdown) {
	var breakdown siem.EligibilityBreakdown
	if rawCase, ok := artifacts["raw_case"].(caseadapter.RawCase); ok {
		_, breakdown = siem.Filter(toDetections(rawCase.Detections), o.eligibility)
	}

	if o.similarity == nil {
		return []map[string]interface{}{}, breakdown
	}

	bag, _ := artifacts["entities"].(models.EntityBag)
	caseID, _ := artifacts["case_id"].(string)
	createdAt, _ := artifacts["created_at"].(time.Time)
	target := similarity.Bag{
		CaseID:    caseID,
		Users:     bag.Users,
		IPs:       bag.IPs,
		Hosts:     bag.Hosts,
		Domains:   bag.Domains,
		RuleID:    firstRuleName(artifacts),
		Timestamp: createdAt,
	}

	matches, err := o.similarity.Find(ctx, target)
	if err != nil || len(matches) == 0 {
		return []map[string]interface{}{}, breakdown
	}

	ids := make([]string, len(matches))
	scores := make(map[string]float64, len(matches))
	for i, m := range matches {
		ids[i] = m.CaseID
		scores[m.CaseID] = m.Score
	}

	related := o.caseFetcher.FetchCases(ctx, ids)
	candidates := make([]map[string]interface{}, len(related))
	for i, rc := range related {
		candidates[i] = map[string]interface{}{
			"case_id":          rc.ID,
			"title":            rc.Title,
			"similarity_score": scores[rc.ID],
			"raw_case":         rc,
		}
	}
	return candidates, breakdown
}

// resolveSIEMResults runs eligible detections from the current case plus
// any enrichment-kept related cases through the SIEM executor.
func (o *Orchestrator) resolveSIEMResults(ctx context.Context, artifacts map[string]interface{}) []siem.QueryResult {
	if o.siemExecutor == nil {
		return []siem.QueryResult{}
	}

	var all []siem.Detection
	if rawCase, ok := artifacts["raw_case"].(caseadapter.RawCase); ok {
		all = append(all, toDetections(rawCase.Detections)...)
	}
	for _, kept := range keptRawCases(artifacts) {
		all = append(all, toDetections(kept.Detections)...)
	}

	eligible, _ := siem.Filter(all, o.eligibility)
	if len(eligible) == 0 {
		return []siem.QueryResult{}
	}
	return o.siemExecutor.Execute(ctx, eligible)
}

// keptRawCases extracts the raw case payloads the enrichment stage kept,
// tolerating whatever shape the enrichment agent's LLM output actually
// produced (a degraded response may omit or malform this field).
func keptRawCases(artifacts map[string]interface{}) []caseadapter.RawCase {
	raw, ok := artifacts["kept_cases"]
	if !ok {
		return nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var cases []caseadapter.RawCase
	if err := json.Unmarshal(encoded, &cases); err != nil {
		return nil
	}
	return cases
}

// firstRuleName returns the current case's first detection's rule name,
// used as the similarity engine's "same rule" bonus feature.
func firstRuleName(artifacts map[string]interface{}) string {
	rawCase, ok := artifacts["raw_case"].(caseadapter.RawCase)
	if !ok || len(rawCase.Detections) == 0 {
		return ""
	}
	return rawCase.Detections[0].RuleName
}

func toDetections(raw []caseadapter.RawDetection) []siem.Detection {
	out := make([]siem.Detection, len(raw))
	for i, d := range raw {
		out[i] = siem.Detection{
			ID:          d.ID,
			RuleName:    d.RuleName,
			RuleType:    d.RuleType,
			EventFilter: d.EventFilter,
			EventFromMS: d.EventFromMS,
			EventToMS:   d.EventToMS,
		}
	}
	return out
}

// requiresApproval implements the autonomy-level approval policy: manual
// gates every stage, supervised gates the configured critical set,
// research gates only the "critical_finding" (correlation, where the
// attack story and threat assessment materialize) and "containment_action"
// (response) checkpoints, and autonomous never gates.
func (o *Orchestrator) requiresApproval(stage models.PipelineStage, autonomy models.AutonomyLevel) bool {
	switch autonomy {
	case models.AutonomyAutonomous:
		return false
	case models.AutonomyManual:
		return true
	case models.AutonomySupervised:
		return o.criticalStages[stage]
	case models.AutonomyResearch:
		return stage == models.StageCorrelation || stage == models.StageResponse
	default:
		return false
	}
}

// gate requests and waits for approval when the stage's autonomy policy
// requires one, returning false (without error) on rejection or expiry.
func (o *Orchestrator) gate(ctx context.Context, caseID string, stage models.PipelineStage, autonomy models.AutonomyLevel) (bool, error) {
	if !o.requiresApproval(stage, autonomy) {
		return true, nil
	}

	description := fmt.Sprintf("approval required before %s stage", stage)
	pending, err := o.approvals.Request(ctx, caseID, string(stage), description, autonomy)
	if err != nil {
		return false, fmt.Errorf("request approval for stage %s: %w", stage, err)
	}

	state, err := o.approvals.WaitFor(ctx, pending.ID, o.approvalTimeout(autonomy))
	if err != nil {
		return false, fmt.Errorf("wait for approval %s: %w", pending.ID, err)
	}
	return state == approval.StateApproved, nil
}

func (o *Orchestrator) approvalTimeout(level models.AutonomyLevel) time.Duration {
	if level == models.AutonomySupervised && o.approvalTimeouts.Supervised > 0 {
		return o.approvalTimeouts.Supervised
	}
	if o.approvalTimeouts.Default > 0 {
		return o.approvalTimeouts.Default
	}
	return approval.Timeout(level)
}

func getOrDefault(artifacts map[string]interface{}, key string, def interface{}) interface{} {
	if v, ok := artifacts[key]; ok && v != nil {
		return v
	}
	return def
}

// summarizeForContext renders a stage's outputs as compact JSON for the
// next stage's "prior stage output" prompt section.
func summarizeForContext(outputs map[string]interface{}) string {
	encoded, err := json.Marshal(outputs)
	if err != nil {
		return ""
	}
	return string(encoded)
}

func (o *Orchestrator) buildResult(caseID string, status models.CaseStatus, bag models.EntityBag, artifacts map[string]interface{}, run *runState) *Result {
	result := &Result{
		CaseID:          caseID,
		Status:          status,
		Entities:        bag,
		TotalCostUSD:    run.totalUsage.CostUSD,
		TotalTokens:     run.totalUsage.TotalTokens,
		AuditTrail:      run.auditTrail,
		StepsCount:      len(run.auditTrail),
		PipelineResults: run.pipelineResults,
	}

	if triage, ok := run.pipelineResults[string(models.StageTriage)]; ok {
		result.TriageAssessment = triage
	}
	if investigation, ok := run.pipelineResults[string(models.StageInvestigation)]; ok {
		result.InvestigationSummary = investigation
	}
	if correlation, ok := run.pipelineResults[string(models.StageCorrelation)]; ok {
		if story, ok := correlation["attack_story"].(map[string]interface{}); ok {
			result.AttackStory = story
		}
	}
	if response, ok := run.pipelineResults[string(models.StageResponse)]; ok {
		if actions, ok := response["containment_actions"].([]interface{}); ok {
			result.ContainmentActions = actions
		}
	}
	if iocSet, ok := artifacts["ioc_set"]; ok {
		result.IOCSet = decodeIOCSet(iocSet)
	}
	if related := keptRawCases(artifacts); len(related) > 0 {
		ids := make([]string, len(related))
		for i, rc := range related {
			ids[i] = rc.ID
		}
		result.RelatedCases = ids
	}
	if report, ok := run.pipelineResults[string(models.StageReporting)]; ok {
		result.FinalReport = report
		result.Reports = o.persistReports(report, caseID)
	}

	return result
}

func decodeIOCSet(raw interface{}) models.IOCSet {
	if set, ok := raw.(models.IOCSet); ok {
		return set
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return models.IOCSet{}
	}
	var set models.IOCSet
	_ = json.Unmarshal(encoded, &set)
	return set
}

// persistReports writes the reporting stage's named sections to disk
// through the configured ReportWriter, one artifact per section present.
func (o *Orchestrator) persistReports(report map[string]interface{}, caseID string) []ReportRef {
	if o.reports == nil {
		return nil
	}

	var refs []ReportRef
	for _, reportType := range []string{"incident_report", "executive_summary", "technical_analysis"} {
		section, ok := report[reportType]
		if !ok {
			continue
		}
		content, ok := section.(map[string]interface{})
		if !ok {
			content = map[string]interface{}{"content": section}
		}
		path, err := o.reports.Persist(context.Background(), caseID, reportType, content)
		if err != nil {
			continue
		}
		refs = append(refs, ReportRef{Type: reportType, Path: path})
	}
	return refs
}

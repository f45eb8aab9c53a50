package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/caseforge/caseforge/ent"
	"github.com/caseforge/caseforge/ent/agentexecution"
	"github.com/caseforge/caseforge/pkg/models"
)

// ExecutionService records one row per agent execution within a case's
// pipeline, independent of the audit trail: a stage that is denied
// approval or errors before producing a step still gets a row here, so
// operators can see the full per-stage timeline rather than only the
// stages that completed far enough to leave an audit step. Implements
// orchestrator.ExecutionRecorder.
type ExecutionService struct {
	client *ent.Client
}

func NewExecutionService(client *ent.Client) *ExecutionService {
	return &ExecutionService{client: client}
}

// RecordStart opens an execution row for stage and returns its id.
func (s *ExecutionService) RecordStart(ctx context.Context, caseID string, stage models.PipelineStage) (string, error) {
	id := uuid.NewString()
	now := time.Now()
	err := s.client.AgentExecution.Create().
		SetID(id).
		SetCaseID(caseID).
		SetStageName(string(stage)).
		SetStatus(agentexecution.StatusActive).
		SetStartedAt(now).
		Exec(ctx)
	if err != nil {
		return "", err
	}
	return id, nil
}

// RecordFinish closes executionID with a terminal status, optionally
// linking the audit step it produced and/or an error message.
func (s *ExecutionService) RecordFinish(ctx context.Context, executionID, status, stepID, errMsg string) error {
	row, err := s.client.AgentExecution.Get(ctx, executionID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil
		}
		return err
	}

	completedAt := time.Now()
	update := s.client.AgentExecution.UpdateOneID(executionID).
		SetStatus(agentexecution.Status(status)).
		SetCompletedAt(completedAt)

	if row.StartedAt != nil {
		update = update.SetDurationMs(int(completedAt.Sub(*row.StartedAt).Milliseconds()))
	}
	if stepID != "" {
		update = update.SetStepID(stepID)
	}
	if errMsg != "" {
		update = update.SetErrorMessage(errMsg)
	}

	if err := update.Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return nil
		}
		return err
	}
	return nil
}

// Timeline returns every recorded execution for a case, oldest first.
func (s *ExecutionService) Timeline(ctx context.Context, caseID string) ([]*ent.AgentExecution, error) {
	return s.client.AgentExecution.Query().
		Where(agentexecution.CaseID(caseID)).
		Order(ent.Asc(agentexecution.FieldStartedAt)).
		All(ctx)
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseforge/caseforge/ent/agentexecution"
	"github.com/caseforge/caseforge/pkg/models"
)

func TestExecutionService_RecordStart_CreatesActiveRow(t *testing.T) {
	client := newTestClient(t)
	cases := NewCaseService(client, nil)
	execs := NewExecutionService(client)
	ctx := context.Background()

	_, err := cases.GetOrCreate(ctx, "case-exec-1", models.AutonomySupervised)
	require.NoError(t, err)

	id, err := execs.RecordStart(ctx, "case-exec-1", models.StageTriage)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	row, err := client.AgentExecution.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, agentexecution.StatusActive, row.Status)
	assert.Equal(t, "case-exec-1", row.CaseID)
	assert.Equal(t, string(models.StageTriage), row.StageName)
	require.NotNil(t, row.StartedAt)
}

func TestExecutionService_RecordFinish_SetsStatusDurationAndStep(t *testing.T) {
	client := newTestClient(t)
	cases := NewCaseService(client, nil)
	execs := NewExecutionService(client)
	ctx := context.Background()

	_, err := cases.GetOrCreate(ctx, "case-exec-2", models.AutonomySupervised)
	require.NoError(t, err)

	id, err := execs.RecordStart(ctx, "case-exec-2", models.StageEnrichment)
	require.NoError(t, err)

	require.NoError(t, execs.RecordFinish(ctx, id, "completed", "step-123", ""))

	row, err := client.AgentExecution.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, agentexecution.StatusCompleted, row.Status)
	require.NotNil(t, row.CompletedAt)
	require.NotNil(t, row.DurationMs)
	require.NotNil(t, row.StepID)
	assert.Equal(t, "step-123", *row.StepID)
}

func TestExecutionService_RecordFinish_RecordsErrorMessageOnFailure(t *testing.T) {
	client := newTestClient(t)
	cases := NewCaseService(client, nil)
	execs := NewExecutionService(client)
	ctx := context.Background()

	_, err := cases.GetOrCreate(ctx, "case-exec-3", models.AutonomySupervised)
	require.NoError(t, err)

	id, err := execs.RecordStart(ctx, "case-exec-3", models.StageInvestigation)
	require.NoError(t, err)

	require.NoError(t, execs.RecordFinish(ctx, id, "failed", "", "siem query timed out"))

	row, err := client.AgentExecution.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, agentexecution.StatusFailed, row.Status)
	require.NotNil(t, row.ErrorMessage)
	assert.Equal(t, "siem query timed out", *row.ErrorMessage)
}

func TestExecutionService_RecordFinish_UnknownExecutionIDIsNoOp(t *testing.T) {
	client := newTestClient(t)
	execs := NewExecutionService(client)
	ctx := context.Background()

	err := execs.RecordFinish(ctx, "does-not-exist", "completed", "", "")
	assert.NoError(t, err)
}

func TestExecutionService_Timeline_ReturnsOldestFirst(t *testing.T) {
	client := newTestClient(t)
	cases := NewCaseService(client, nil)
	execs := NewExecutionService(client)
	ctx := context.Background()

	_, err := cases.GetOrCreate(ctx, "case-exec-4", models.AutonomySupervised)
	require.NoError(t, err)

	id1, err := execs.RecordStart(ctx, "case-exec-4", models.StageTriage)
	require.NoError(t, err)
	require.NoError(t, execs.RecordFinish(ctx, id1, "completed", "", ""))

	id2, err := execs.RecordStart(ctx, "case-exec-4", models.StageEnrichment)
	require.NoError(t, err)
	require.NoError(t, execs.RecordFinish(ctx, id2, "completed", "", ""))

	timeline, err := execs.Timeline(ctx, "case-exec-4")
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, string(models.StageTriage), timeline[0].StageName)
	assert.Equal(t, string(models.StageEnrichment), timeline[1].StageName)
}

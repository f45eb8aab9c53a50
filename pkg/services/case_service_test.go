package services

import (
	"context"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/caseforge/caseforge/ent"
	"github.com/caseforge/caseforge/pkg/caseerrors"
	"github.com/caseforge/caseforge/pkg/models"
)

func newTestClient(t *testing.T) *ent.Client {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	drv, err := entsql.Open(dialect.Postgres, connStr)
	require.NoError(t, err)

	client := ent.NewClient(ent.Driver(drv))
	require.NoError(t, client.Schema.Create(ctx))
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestCaseService_GetOrCreate_CreatesOncePerID(t *testing.T) {
	client := newTestClient(t)
	svc := NewCaseService(client, nil)
	ctx := context.Background()

	created, err := svc.GetOrCreate(ctx, "case-1", models.AutonomyManual)
	require.NoError(t, err)
	assert.Equal(t, "case-1", created.ID)
	assert.Equal(t, models.AutonomyManual, created.AutonomyLevel)
	assert.Equal(t, models.CaseStatusPending, created.Status)

	fetched, err := svc.GetOrCreate(ctx, "case-1", models.AutonomyAutonomous)
	require.NoError(t, err)
	assert.Equal(t, models.AutonomyManual, fetched.AutonomyLevel, "second call must not overwrite the existing row")
}

func TestCaseService_Get_UnknownCaseReturnsNotFound(t *testing.T) {
	client := newTestClient(t)
	svc := NewCaseService(client, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, caseerrors.Is(err, caseerrors.ErrNotFound))
}

func TestCaseService_SetStatus_SetsCompletedAtWhenProvided(t *testing.T) {
	client := newTestClient(t)
	svc := NewCaseService(client, nil)
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, "case-2", models.AutonomySupervised)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, svc.SetStatus(ctx, "case-2", models.CaseStatusCompleted, &now))

	updated, err := svc.Get(ctx, "case-2")
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)
	assert.WithinDuration(t, now, *updated.CompletedAt, time.Second)
}

func TestCaseService_AddUsage_Accumulates(t *testing.T) {
	client := newTestClient(t)
	svc := NewCaseService(client, nil)
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, "case-3", models.AutonomySupervised)
	require.NoError(t, err)

	require.NoError(t, svc.AddUsage(ctx, "case-3", models.TokenUsage{TotalTokens: 100, CostUSD: 0.5}))
	require.NoError(t, svc.AddUsage(ctx, "case-3", models.TokenUsage{TotalTokens: 50, CostUSD: 0.25}))

	updated, err := svc.Get(ctx, "case-3")
	require.NoError(t, err)
	assert.Equal(t, int64(150), updated.ActualTokens)
	assert.InDelta(t, 0.75, updated.ActualCostUSD, 0.0001)
}

func TestCaseService_SetEntities_ReplacesEntityRows(t *testing.T) {
	client := newTestClient(t)
	svc := NewCaseService(client, nil)
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, "case-4", models.AutonomySupervised)
	require.NoError(t, err)

	firstBag := models.EntityBag{Users: []string{"alice"}, IPs: []string{"10.0.0.1"}}
	require.NoError(t, svc.SetEntities(ctx, "case-4", firstBag))

	count, err := client.CaseEntity.Query().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	secondBag := models.EntityBag{Hosts: []string{"web-01"}}
	require.NoError(t, svc.SetEntities(ctx, "case-4", secondBag))

	count, err = client.CaseEntity.Query().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "replacing entities must delete the previous rows")

	updated, err := svc.Get(ctx, "case-4")
	require.NoError(t, err)
	assert.Equal(t, []string{"web-01"}, updated.Entities.Hosts)
}

func TestCaseService_ListActive_ExcludesTerminalStatuses(t *testing.T) {
	client := newTestClient(t)
	svc := NewCaseService(client, nil)
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, "case-active", models.AutonomySupervised)
	require.NoError(t, err)
	_, err = svc.GetOrCreate(ctx, "case-done", models.AutonomySupervised)
	require.NoError(t, err)
	require.NoError(t, svc.SetStatus(ctx, "case-done", models.CaseStatusCompleted, nil))

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "case-active", active[0].ID)
}

func TestCaseService_ListAll_PaginatesAndCounts(t *testing.T) {
	client := newTestClient(t)
	svc := NewCaseService(client, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.GetOrCreate(ctx, "case-page-"+string(rune('a'+i)), models.AutonomySupervised)
		require.NoError(t, err)
	}

	page, total, err := svc.ListAll(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page, 2)
}

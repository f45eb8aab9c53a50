package audit

import (
	"context"
	"os"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/caseforge/caseforge/ent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestClient starts a disposable Postgres container and auto-migrates
// the schema through ent, mirroring the database package's own test helper.
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

func seedCase(t *testing.T, client *ent.Client, caseID string) {
	t.Helper()
	_, err := client.CaseRecord.Create().
		SetID(caseID).
		Save(context.Background())
	require.NoError(t, err)
}

func TestStore_Append_ChainsSequentialSteps(t *testing.T) {
	client := newTestClient(t)
	store := NewStore(client, nil)
	ctx := context.Background()

	seedCase(t, client, "case-1")

	first, err := store.Append(ctx, StepInput{
		CaseID:        "case-1",
		AgentName:     "triage",
		AgentRole:     "triage_agent",
		Model:         "claude-test",
		PromptVersion: "v1.0",
		AutonomyLevel: "supervised",
		Outputs:       map[string]interface{}{"severity": "high"},
		Tokens:        TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15, CostUSD: 0.01},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, first.SequenceNumber)
	assert.Nil(t, first.PrevHash)
	assert.NotEmpty(t, first.Hash)

	second, err := store.Append(ctx, StepInput{
		CaseID:        "case-1",
		AgentName:     "enrichment",
		AgentRole:     "enrichment_agent",
		Model:         "claude-test",
		PromptVersion: "v1.0",
		AutonomyLevel: "supervised",
		Outputs:       map[string]interface{}{"entities": 3},
		Tokens:        TokenUsage{InputTokens: 20, OutputTokens: 8, TotalTokens: 28, CostUSD: 0.02},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, second.SequenceNumber)
	require.NotNil(t, second.PrevHash)
	assert.Equal(t, first.Hash, *second.PrevHash)
	assert.NotEqual(t, first.Hash, second.Hash)
}

func TestStore_VerifyIntegrity_DetectsTampering(t *testing.T) {
	client := newTestClient(t)
	store := NewStore(client, nil)
	ctx := context.Background()

	seedCase(t, client, "case-2")

	for i := 0; i < 3; i++ {
		_, err := store.Append(ctx, StepInput{
			CaseID:        "case-2",
			AgentName:     "triage",
			AgentRole:     "triage_agent",
			Model:         "claude-test",
			PromptVersion: "v1.0",
			AutonomyLevel: "supervised",
			Tokens:        TokenUsage{TotalTokens: 1},
		})
		require.NoError(t, err)
	}

	report, err := store.VerifyIntegrity(ctx, "case-2")
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 3, report.TotalSteps)
	assert.Equal(t, 3, report.VerifiedSteps)
	assert.Empty(t, report.Errors)

	tampered, err := client.AuditStep.Query().
		Order(ent.Asc("sequence_number")).
		First(ctx)
	require.NoError(t, err)
	_, err = tampered.Update().SetOutputs(map[string]interface{}{"tampered": true}).Save(ctx)
	require.NoError(t, err)

	report, err = store.VerifyIntegrity(ctx, "case-2")
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.NotEmpty(t, report.Errors)
}

func TestStore_GetCaseSummary_AggregatesChain(t *testing.T) {
	client := newTestClient(t)
	store := NewStore(client, nil)
	ctx := context.Background()

	seedCase(t, client, "case-3")

	_, err := store.Append(ctx, StepInput{
		CaseID: "case-3", AgentName: "triage", AgentRole: "triage_agent",
		Model: "claude-test", PromptVersion: "v1.0", AutonomyLevel: "supervised",
		Tokens: TokenUsage{TotalTokens: 10, CostUSD: 0.01},
	})
	require.NoError(t, err)
	_, err = store.Append(ctx, StepInput{
		CaseID: "case-3", AgentName: "enrichment", AgentRole: "enrichment_agent",
		Model: "claude-test", PromptVersion: "v1.0", AutonomyLevel: "supervised",
		Tokens: TokenUsage{TotalTokens: 20, CostUSD: 0.02},
	})
	require.NoError(t, err)

	summary, err := store.GetCaseSummary(ctx, "case-3")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalSteps)
	assert.InDelta(t, 0.03, summary.TotalCostUSD, 0.0001)
	assert.EqualValues(t, 30, summary.TotalTokens)
	assert.ElementsMatch(t, []string{"triage", "enrichment"}, summary.AgentsUsed)
}

func TestStore_Append_SignsWhenSignerConfigured(t *testing.T) {
	client := newTestClient(t)

	dir := t.TempDir()
	seedPath := dir + "/audit.key"
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(seedPath, seed, 0o600))

	signer, err := NewSigner(seedPath)
	require.NoError(t, err)
	require.NotNil(t, signer)

	store := NewStore(client, signer)
	ctx := context.Background()
	seedCase(t, client, "case-4")

	step, err := store.Append(ctx, StepInput{
		CaseID: "case-4", AgentName: "triage", AgentRole: "triage_agent",
		Model: "claude-test", PromptVersion: "v1.0", AutonomyLevel: "supervised",
	})
	require.NoError(t, err)
	require.NotNil(t, step.Signature)
	assert.Contains(t, *step.Signature, "ed25519:")
}

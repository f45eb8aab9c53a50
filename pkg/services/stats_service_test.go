package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseforge/caseforge/pkg/models"
)

func TestStatsService_TokenUsage_SumsAcrossCases(t *testing.T) {
	client := newTestClient(t)
	cases := NewCaseService(client, nil)
	stats := NewStatsService(client)
	ctx := context.Background()

	_, err := cases.GetOrCreate(ctx, "case-1", models.AutonomySupervised)
	require.NoError(t, err)
	_, err = cases.GetOrCreate(ctx, "case-2", models.AutonomySupervised)
	require.NoError(t, err)

	require.NoError(t, cases.AddUsage(ctx, "case-1", models.TokenUsage{TotalTokens: 100, CostUSD: 1.5}))
	require.NoError(t, cases.AddUsage(ctx, "case-2", models.TokenUsage{TotalTokens: 200, CostUSD: 2.5}))

	result, err := stats.TokenUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCases)
	assert.Equal(t, int64(300), result.TotalTokens)
	assert.InDelta(t, 4.0, result.TotalCostUSD, 0.0001)
}

func TestStatsService_TokenUsage_NoCasesReturnsZeroValue(t *testing.T) {
	client := newTestClient(t)
	stats := NewStatsService(client)

	result, err := stats.TokenUsage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalCases)
	assert.Equal(t, int64(0), result.TotalTokens)
	assert.Equal(t, 0.0, result.TotalCostUSD)
}

package services

import (
	"context"
	"fmt"

	"github.com/caseforge/caseforge/ent"
	"github.com/caseforge/caseforge/ent/caserecord"
)

// TokenStats summarizes token spend and cost across every case on record.
type TokenStats struct {
	TotalCases   int
	TotalTokens  int64
	TotalCostUSD float64
}

// StatsService aggregates spend across cases. pkg/audit.Store.GetCaseSummary
// covers the per-case view; this fills the global one.
type StatsService struct {
	client *ent.Client
}

// NewStatsService builds a StatsService.
func NewStatsService(client *ent.Client) *StatsService {
	return &StatsService{client: client}
}

// TokenUsage returns aggregate token and cost totals across all cases.
func (s *StatsService) TokenUsage(ctx context.Context) (TokenStats, error) {
	rows, err := s.client.CaseRecord.Query().
		Select(caserecord.FieldActualTokens, caserecord.FieldActualCostUsd).
		All(ctx)
	if err != nil {
		return TokenStats{}, fmt.Errorf("load case usage totals: %w", err)
	}

	stats := TokenStats{TotalCases: len(rows)}
	for _, row := range rows {
		stats.TotalTokens += row.ActualTokens
		stats.TotalCostUSD += row.ActualCostUsd
	}
	return stats, nil
}

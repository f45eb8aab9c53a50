package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenUsage_Add(t *testing.T) {
	a := TokenUsage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150, CostUSD: 0.123456}
	b := TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15, CostUSD: 0.000001}

	sum := a.Add(b)

	assert.Equal(t, int64(110), sum.InputTokens)
	assert.Equal(t, int64(55), sum.OutputTokens)
	assert.Equal(t, int64(165), sum.TotalTokens)
	assert.Equal(t, 0.123457, sum.CostUSD)
}

func TestTokenUsage_AddAccumulatesWithoutFloatDrift(t *testing.T) {
	var total TokenUsage
	step := TokenUsage{InputTokens: 1, CostUSD: 0.0000001}
	for i := 0; i < 7; i++ {
		total = total.Add(step)
	}
	// Seven stages each costing a sub-millionth of a dollar should round to
	// zero at 6 decimals rather than drift into a spurious nonzero value.
	assert.Equal(t, 0.0, total.CostUSD)
}

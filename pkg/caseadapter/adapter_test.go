package caseadapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRuleType(t *testing.T) {
	assert.Equal(t, "factFeature", classifyRuleType("Fact_BruteForce"))
	assert.Equal(t, "profileFeature", classifyRuleType("profile-anomaly"))
	assert.Equal(t, "", classifyRuleType("behavioral_oddness"))
}

func TestFetchCases_UnreachableBackendReturnsEmptySlice(t *testing.T) {
	adapter := NewAdapter("http://127.0.0.1:0", "")
	cases := adapter.FetchCases(context.Background(), []string{"case-1"})
	assert.NotNil(t, cases)
	assert.Empty(t, cases)
}

func TestFetchCases_EmptyIDsShortCircuits(t *testing.T) {
	adapter := NewAdapter("http://example.invalid", "")
	cases := adapter.FetchCases(context.Background(), nil)
	assert.NotNil(t, cases)
	assert.Empty(t, cases)
}

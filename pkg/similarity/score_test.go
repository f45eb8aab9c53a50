package similarity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJaccard_EmptySetsScoreZero(t *testing.T) {
	assert.Equal(t, 0.0, jaccard(nil, nil))
}

func TestJaccard_FullOverlapScoresOne(t *testing.T) {
	assert.Equal(t, 1.0, jaccard([]string{"a", "b"}, []string{"a", "b"}))
}

func TestScore_WeightsUsersHighest(t *testing.T) {
	cfg := DefaultConfig()
	target := Bag{Users: []string{"alice"}, IPs: []string{"10.0.0.1"}}
	userMatch := Bag{Users: []string{"alice"}}
	ipMatch := Bag{IPs: []string{"10.0.0.1"}}

	assert.Greater(t, score(target, userMatch, cfg), score(target, ipMatch, cfg))
}

func TestScore_AppliesSameRuleAndTimeWindowBonuses(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Now()
	target := Bag{RuleID: "r1", Timestamp: now}
	same := Bag{RuleID: "r1", Timestamp: now.Add(time.Hour)}
	different := Bag{RuleID: "r2", Timestamp: now.Add(72 * time.Hour)}

	assert.InDelta(t, 0.2, score(target, same, cfg), 1e-9)
	assert.InDelta(t, 0.0, score(target, different, cfg), 1e-9)
}

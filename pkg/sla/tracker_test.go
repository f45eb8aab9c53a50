package sla

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_ObserveWithinBudgetDoesNotViolate(t *testing.T) {
	reg := prometheus.NewRegistry()
	tracker := NewTracker([]Target{{Stage: "triage", MaxDuration: time.Second, ViolationThreshold: 2}}, reg)

	tracker.Observe("triage", 500*time.Millisecond)

	snapshots := tracker.Snapshots()
	require.Len(t, snapshots, 1)
	assert.Equal(t, 0, snapshots[0].ConsecutiveBreaches)
}

func TestTracker_ConsecutiveBreachesReachThreshold(t *testing.T) {
	reg := prometheus.NewRegistry()
	tracker := NewTracker([]Target{{Stage: "triage", MaxDuration: time.Second, ViolationThreshold: 2}}, reg)

	tracker.Observe("triage", 2*time.Second) // streak 1, below threshold
	snapshots := tracker.Snapshots()
	require.Len(t, snapshots, 1)
	assert.Equal(t, 1, snapshots[0].ConsecutiveBreaches)

	tracker.Observe("triage", 2*time.Second) // streak 2, hits threshold and resets
	snapshots = tracker.Snapshots()
	assert.Equal(t, 0, snapshots[0].ConsecutiveBreaches)
}

func TestTracker_ABreachFollowedByOnTimeRunResetsStreak(t *testing.T) {
	reg := prometheus.NewRegistry()
	tracker := NewTracker([]Target{{Stage: "triage", MaxDuration: time.Second, ViolationThreshold: 3}}, reg)

	tracker.Observe("triage", 2*time.Second)
	tracker.Observe("triage", 500*time.Millisecond)

	snapshots := tracker.Snapshots()
	require.Len(t, snapshots, 1)
	assert.Equal(t, 0, snapshots[0].ConsecutiveBreaches)
}

func TestTracker_UnconfiguredStageIsIgnored(t *testing.T) {
	reg := prometheus.NewRegistry()
	tracker := NewTracker([]Target{{Stage: "triage", MaxDuration: time.Second}}, reg)

	assert.NotPanics(t, func() {
		tracker.Observe("enrichment", 10*time.Second)
	})
	// "enrichment" carries no target, so it must not appear in the snapshot.
	for _, snap := range tracker.Snapshots() {
		assert.NotEqual(t, "enrichment", snap.Stage)
	}
}

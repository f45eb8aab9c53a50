// Package sla tracks pipeline stage latency against configured targets and
// counts sustained breaches, so an operator can tell a one-off slow run
// from a stage that has drifted out of its expected budget.
package sla

import (
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Target names one stage's latency budget. A single slow run isn't itself
// alarm-worthy; ViolationThreshold consecutive breaches is what Tracker
// treats as a sustained violation.
type Target struct {
	Stage              string
	MaxDuration        time.Duration
	ViolationThreshold int
}

// Tracker observes stage durations against a fixed set of Targets,
// exporting both the raw duration histogram and a violation counter via
// prometheus/client_golang so they surface on the same /metrics endpoint
// as the rest of the process's instrumentation.
type Tracker struct {
	mu      sync.Mutex
	targets map[string]Target
	streaks map[string]int

	duration   *prometheus.HistogramVec
	violations *prometheus.CounterVec
}

// NewTracker builds a Tracker for targets and registers its metrics with
// reg. A nil reg registers against the default global registry.
func NewTracker(targets []Target, reg prometheus.Registerer) *Tracker {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	t := &Tracker{
		targets: make(map[string]Target, len(targets)),
		streaks: make(map[string]int, len(targets)),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "caseforge",
			Subsystem: "sla",
			Name:      "stage_duration_seconds",
			Help:      "Observed duration of each orchestrator stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caseforge",
			Subsystem: "sla",
			Name:      "violations_total",
			Help:      "Count of sustained SLA violations per stage.",
		}, []string{"stage"}),
	}
	for _, target := range targets {
		t.targets[target.Stage] = target
	}

	reg.MustRegister(t.duration, t.violations)
	return t
}

// Observe records d against stage's target, if one is configured. A
// breach increments that stage's consecutive-breach streak; the streak
// resets on any run within budget. Reaching the target's
// ViolationThreshold logs a warning and increments the violations metric,
// then resets the streak so repeated breaches log once per threshold
// window rather than on every single run past it.
func (t *Tracker) Observe(stage string, d time.Duration) {
	t.duration.WithLabelValues(stage).Observe(d.Seconds())

	target, ok := t.targets[stage]
	if !ok || target.MaxDuration <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if d <= target.MaxDuration {
		t.streaks[stage] = 0
		return
	}

	t.streaks[stage]++
	threshold := target.ViolationThreshold
	if threshold <= 0 {
		threshold = 1
	}
	if t.streaks[stage] < threshold {
		return
	}

	t.violations.WithLabelValues(stage).Inc()
	slog.Warn("sla violation: stage exceeded latency budget",
		"stage", stage, "duration", d, "budget", target.MaxDuration, "consecutive_breaches", t.streaks[stage])
	t.streaks[stage] = 0
}

// Snapshot is the current breach-streak state for one tracked stage,
// exposed for the stats API.
type Snapshot struct {
	Stage               string        `json:"stage"`
	MaxDuration         time.Duration `json:"max_duration_ns"`
	ConsecutiveBreaches int           `json:"consecutive_breaches"`
}

// Snapshots returns the current streak for every configured target, for
// GET /api/stats/sla.
func (t *Tracker) Snapshots() []Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Snapshot, 0, len(t.targets))
	for stage, target := range t.targets {
		out = append(out, Snapshot{
			Stage:               stage,
			MaxDuration:         target.MaxDuration,
			ConsecutiveBreaches: t.streaks[stage],
		})
	}
	return out
}

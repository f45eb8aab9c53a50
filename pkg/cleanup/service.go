// Package cleanup runs periodic maintenance unrelated to any single case
// enrichment request.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/caseforge/caseforge/pkg/approval"
	"github.com/caseforge/caseforge/pkg/models"
	"github.com/caseforge/caseforge/pkg/siem"
	"github.com/caseforge/caseforge/pkg/similarity"
)

// CaseLister supplies the active cases a similarity-index rebuild should
// re-commit. pkg/services.CaseService satisfies this.
type CaseLister interface {
	ListActive(ctx context.Context) ([]*models.Case, error)
}

// Service periodically expires pending approvals past their deadline,
// purges expired SIEM query cache entries, and rebuilds similarity-index
// membership for still-active cases so a long-running case doesn't age
// out of the candidate set. Scheduling is driven by robfig/cron rather
// than a raw ticker so the sweep cadence reads as a standard cron
// expression in configuration and logs.
type Service struct {
	schedule        string
	approvals       *approval.Store
	siemCache       siem.Cache        // optional; nil skips the purge sweep
	similarityIndex *similarity.Index // optional; nil skips the rebuild sweep
	cases           CaseLister        // optional; nil skips the rebuild sweep

	cron *cron.Cron
}

// NewService creates a new cleanup service. schedule is any robfig/cron
// expression, including the "@every 5m" shorthand; an empty schedule runs
// the sweep once at Start and never again. siemCache, similarityIndex, and
// cases may be nil to skip the sweeps that depend on them.
func NewService(approvals *approval.Store, schedule string, siemCache siem.Cache, similarityIndex *similarity.Index, cases CaseLister) *Service {
	return &Service{
		schedule:        schedule,
		approvals:       approvals,
		siemCache:       siemCache,
		similarityIndex: similarityIndex,
		cases:           cases,
	}
}

// Start runs the sweep once immediately, then schedules it to repeat per
// the configured cron expression. Calling Start twice is a no-op.
func (s *Service) Start(ctx context.Context) {
	if s.cron != nil {
		return
	}

	s.runSweep(ctx)

	if s.schedule == "" {
		return
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() { s.runSweep(ctx) }); err != nil {
		slog.Error("cleanup service: invalid schedule, running once only", "schedule", s.schedule, "error", err)
		s.cron = nil
		return
	}
	s.cron.Start()
	slog.Info("cleanup service started", "schedule", s.schedule)
}

// Stop halts the scheduler and waits for any in-flight sweep to finish.
func (s *Service) Stop() {
	if s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.cron = nil
	slog.Info("cleanup service stopped")
}

func (s *Service) runSweep(ctx context.Context) {
	s.expireStaleApprovals(ctx)
	s.purgeSIEMCache(ctx)
	s.rebuildSimilarityIndex(ctx)
}

func (s *Service) expireStaleApprovals(ctx context.Context) {
	count, err := s.approvals.ExpireStale(ctx)
	if err != nil {
		slog.Error("retention: approval expiry sweep failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("retention: expired stale approvals", "count", count)
	}
}

func (s *Service) purgeSIEMCache(ctx context.Context) {
	if s.siemCache == nil {
		return
	}
	count, err := s.siemCache.Purge(ctx)
	if err != nil {
		slog.Error("retention: siem cache purge failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("retention: purged expired siem cache entries", "count", count)
	}
}

func (s *Service) rebuildSimilarityIndex(ctx context.Context) {
	if s.similarityIndex == nil || s.cases == nil {
		return
	}
	active, err := s.cases.ListActive(ctx)
	if err != nil {
		slog.Error("retention: similarity index rebuild failed to list active cases", "error", err)
		return
	}
	bags := make([]similarity.Bag, 0, len(active))
	for _, c := range active {
		ruleID := c.ThreatClassification
		bags = append(bags, similarity.Bag{
			CaseID:    c.ID,
			Users:     c.Entities.Users,
			IPs:       c.Entities.IPs,
			Hosts:     c.Entities.Hosts,
			Domains:   c.Entities.Domains,
			RuleID:    ruleID,
			Timestamp: c.CreatedAt,
		})
	}
	count, err := s.similarityIndex.Rebuild(ctx, bags)
	if err != nil {
		slog.Error("retention: similarity index rebuild failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("retention: rebuilt similarity index for active cases", "count", count)
	}
}

// ScheduleFromInterval formats a time.Duration as a robfig/cron "@every"
// expression, for callers that still configure an interval rather than a
// cron expression directly.
func ScheduleFromInterval(interval time.Duration) string {
	if interval <= 0 {
		return ""
	}
	return fmt.Sprintf("@every %s", interval)
}

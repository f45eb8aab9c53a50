package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/caseforge/caseforge/ent"
	"github.com/caseforge/caseforge/ent/approval"
	"github.com/caseforge/caseforge/pkg/caseerrors"
	"github.com/caseforge/caseforge/pkg/models"
)

// Decision is the outcome of a decide call.
type Decision string

const (
	DecisionOK             Decision = "ok"
	DecisionNotFound       Decision = "not_found"
	DecisionAlreadyDecided Decision = "already_decided"
)

// Store persists approval gate requests and notifies waiters of terminal
// transitions.
type Store struct {
	client   *ent.Client
	notifier *notifier
}

// NewStore builds a Store.
func NewStore(client *ent.Client) *Store {
	return &Store{client: client, notifier: newNotifier()}
}

// Request persists a pending approval row with expires_at derived from the
// autonomy level's default timeout.
func (s *Store) Request(ctx context.Context, caseID, stage, description string, level models.AutonomyLevel) (*Approval, error) {
	id := uuid.NewString()
	now := time.Now()
	expiresAt := now.Add(Timeout(level))

	row, err := s.client.Approval.Create().
		SetID(id).
		SetCaseID(caseID).
		SetAgentName(stage).
		SetDescription(description).
		SetStatus(approval.StatusPending).
		SetCreatedAt(now).
		SetExpiresAt(expiresAt).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create approval request: %w", err)
	}

	return fromEnt(row), nil
}

// Decide transitions a pending approval to a terminal state. It is
// idempotent on already-terminal rows: deciding an approved/rejected/
// expired row returns DecisionAlreadyDecided without error.
func (s *Store) Decide(ctx context.Context, approvalID string, approved bool, by string, reason *string) (Decision, error) {
	tx, err := s.client.Tx(ctx)
	if err != nil {
		return "", fmt.Errorf("begin decide transaction: %w", err)
	}
	defer tx.Rollback()

	row, err := tx.Approval.Query().Where(approval.IDEQ(approvalID)).ForUpdate().Only(ctx)
	if ent.IsNotFound(err) {
		return DecisionNotFound, nil
	}
	if err != nil {
		return "", fmt.Errorf("load approval %s: %w", approvalID, err)
	}

	if row.Status != approval.StatusPending {
		return DecisionAlreadyDecided, nil
	}

	newStatus := approval.StatusRejected
	if approved {
		newStatus = approval.StatusApproved
	}

	now := time.Now()
	update := tx.Approval.UpdateOne(row).
		SetStatus(newStatus).
		SetDecidedBy(by).
		SetDecidedAt(now)
	if reason != nil {
		update = update.SetReason(*reason)
	}
	updated, err := update.Save(ctx)
	if err != nil {
		return "", fmt.Errorf("save approval decision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit approval decision: %w", err)
	}

	s.notifier.publish(approvalID, State(updated.Status))

	return DecisionOK, nil
}

// ListPending returns pending approvals, optionally scoped to a case.
func (s *Store) ListPending(ctx context.Context, caseID *string) ([]*Approval, error) {
	query := s.client.Approval.Query().Where(approval.StatusEQ(approval.StatusPending))
	if caseID != nil {
		query = query.Where(approval.CaseIDEQ(*caseID))
	}
	rows, err := query.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}

	out := make([]*Approval, len(rows))
	for i, row := range rows {
		out[i] = fromEnt(row)
	}
	return out, nil
}

// Get fetches a single approval by id.
func (s *Store) Get(ctx context.Context, approvalID string) (*Approval, error) {
	row, err := s.client.Approval.Query().Where(approval.IDEQ(approvalID)).Only(ctx)
	if ent.IsNotFound(err) {
		return nil, caseerrors.NotFoundf("approval %s not found", approvalID)
	}
	if err != nil {
		return nil, fmt.Errorf("load approval %s: %w", approvalID, err)
	}
	return fromEnt(row), nil
}

// ExpireStale finds pending approvals past their deadline and expires them,
// returning the count transitioned. Run periodically by pkg/cleanup so a
// case whose approver never responds doesn't block the pipeline forever.
func (s *Store) ExpireStale(ctx context.Context) (int, error) {
	rows, err := s.client.Approval.Query().
		Where(approval.StatusEQ(approval.StatusPending), approval.ExpiresAtLT(time.Now())).
		All(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stale approvals: %w", err)
	}

	count := 0
	for _, row := range rows {
		if _, err := s.expire(ctx, row.ID); err != nil {
			return count, fmt.Errorf("expire approval %s: %w", row.ID, err)
		}
		count++
	}
	return count, nil
}

// expire transitions a pending approval past its deadline to expired. It is
// called by WaitFor's polling loop and by the maintenance sweep in
// pkg/cleanup; both paths tolerate a row that another process already
// decided or expired.
func (s *Store) expire(ctx context.Context, approvalID string) (*Approval, error) {
	tx, err := s.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin expire transaction: %w", err)
	}
	defer tx.Rollback()

	row, err := tx.Approval.Query().Where(approval.IDEQ(approvalID)).ForUpdate().Only(ctx)
	if err != nil {
		return nil, fmt.Errorf("load approval %s: %w", approvalID, err)
	}
	if row.Status != approval.StatusPending {
		_ = tx.Commit()
		return fromEnt(row), nil
	}

	now := time.Now()
	updated, err := tx.Approval.UpdateOne(row).
		SetStatus(approval.StatusExpired).
		SetDecidedAt(now).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("save approval expiry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approval expiry: %w", err)
	}

	s.notifier.publish(approvalID, StateExpired)

	return fromEnt(updated), nil
}

// Statistics aggregates approval gate activity across every request on
// record: how many sit in each terminal state, how many are still
// pending, and how long a decided approval waited on average between
// being requested and being resolved.
type Statistics struct {
	Pending             int           `json:"pending"`
	Approved            int           `json:"approved"`
	Rejected            int           `json:"rejected"`
	Expired             int           `json:"expired"`
	Total               int           `json:"total"`
	AverageDecisionWait time.Duration `json:"average_decision_wait_ns"`
}

// Statistics computes Statistics across every approval row.
func (s *Store) Statistics(ctx context.Context) (Statistics, error) {
	rows, err := s.client.Approval.Query().All(ctx)
	if err != nil {
		return Statistics{}, fmt.Errorf("load approval statistics: %w", err)
	}

	var stats Statistics
	var totalWait time.Duration
	var decided int

	stats.Total = len(rows)
	for _, row := range rows {
		switch row.Status {
		case approval.StatusPending:
			stats.Pending++
		case approval.StatusApproved:
			stats.Approved++
		case approval.StatusRejected:
			stats.Rejected++
		case approval.StatusExpired:
			stats.Expired++
		}
		if row.DecidedAt != nil {
			totalWait += row.DecidedAt.Sub(row.CreatedAt)
			decided++
		}
	}
	if decided > 0 {
		stats.AverageDecisionWait = totalWait / time.Duration(decided)
	}
	return stats, nil
}

func fromEnt(row *ent.Approval) *Approval {
	a := &Approval{
		ID:          row.ID,
		CaseID:      row.CaseID,
		Stage:       row.AgentName,
		Description: row.Description,
		Status:      State(row.Status),
		CreatedAt:   row.CreatedAt,
		ExpiresAt:   row.ExpiresAt,
		DecidedBy:   row.DecidedBy,
		Reason:      row.Reason,
	}
	if row.DecidedAt != nil {
		a.DecidedAt = row.DecidedAt
	}
	return a
}

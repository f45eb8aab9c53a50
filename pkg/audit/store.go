package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/caseforge/caseforge/ent"
	"github.com/caseforge/caseforge/ent/auditstep"
	"github.com/caseforge/caseforge/ent/caserecord"
	"github.com/caseforge/caseforge/pkg/caseerrors"
	"github.com/google/uuid"
)

// Store persists the hash chain through ent, serializing appends per case
// with a row lock so multiple orchestrator instances never race on
// prev_hash.
type Store struct {
	client *ent.Client
	signer *Signer
}

// NewStore builds a Store. signer may be nil to disable signing.
func NewStore(client *ent.Client, signer *Signer) *Store {
	return &Store{client: client, signer: signer}
}

// Append assigns a step_id and sequence_number, computes the hash against
// the case's current chain tip, signs it if a signer is configured, and
// persists the row. The case row lock and the prev_hash read happen inside
// the same transaction as the insert, so concurrent appends to the same
// case serialize instead of racing on prev_hash.
func (s *Store) Append(ctx context.Context, in StepInput) (*Step, error) {
	if in.CaseID == "" {
		return nil, caseerrors.InvalidInputf("case_id is required")
	}

	tx, err := s.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin audit transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.CaseRecord.Query().
		Where(caserecord.IDEQ(in.CaseID)).
		ForUpdate().
		Only(ctx); err != nil {
		if ent.IsNotFound(err) {
			return nil, caseerrors.NotFoundf("case %s", in.CaseID)
		}
		return nil, fmt.Errorf("lock case %s: %w", in.CaseID, err)
	}

	prev, err := tx.AuditStep.Query().
		Where(auditstep.CaseIDEQ(in.CaseID)).
		Order(ent.Desc(auditstep.FieldSequenceNumber)).
		First(ctx)

	var prevHash *string
	seq := 0
	switch {
	case ent.IsNotFound(err):
		// First step in the case: prev_hash stays nil.
	case err != nil:
		return nil, fmt.Errorf("query chain tip for case %s: %w", in.CaseID, err)
	default:
		h := prev.Hash
		prevHash = &h
		seq = prev.SequenceNumber + 1
	}

	stepID := uuid.New().String()
	now := time.Now().UTC()
	observations := in.Observations

	payload := hashablePayload{
		StepID:         stepID,
		CaseID:         in.CaseID,
		SequenceNumber: seq,
		CreatedAt:      now,
		AgentName:      in.AgentName,
		AgentRole:      in.AgentRole,
		Model:          in.Model,
		PromptVersion:  in.PromptVersion,
		AutonomyLevel:  in.AutonomyLevel,
		Inputs:         in.Inputs,
		Plan:           in.Plan,
		Observations:   observations,
		Outputs:        in.Outputs,
		Tokens:         in.Tokens,
	}
	canonical, err := canonicalJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("canonicalize audit step %s: %w", stepID, err)
	}
	hash := computeHash(prevHash, canonical)

	var signature *string
	if s.signer != nil {
		sig, signErr := s.signer.Sign(hash)
		if signErr != nil {
			observations = append(observations, fmt.Sprintf("audit signature failed: %v", signErr))
		} else {
			signature = &sig
		}
	}

	builder := tx.AuditStep.Create().
		SetID(stepID).
		SetCaseID(in.CaseID).
		SetSequenceNumber(seq).
		SetCreatedAt(now).
		SetAgentName(in.AgentName).
		SetAgentRole(in.AgentRole).
		SetModel(in.Model).
		SetPromptVersion(in.PromptVersion).
		SetAutonomyLevel(in.AutonomyLevel).
		SetInputs(in.Inputs).
		SetPlan(in.Plan).
		SetObservations(observations).
		SetOutputs(in.Outputs).
		SetInputTokens(in.Tokens.InputTokens).
		SetOutputTokens(in.Tokens.OutputTokens).
		SetTotalTokens(in.Tokens.TotalTokens).
		SetCostUsd(in.Tokens.CostUSD).
		SetHash(hash)
	if prevHash != nil {
		builder = builder.SetPrevHash(*prevHash)
	}
	if signature != nil {
		builder = builder.SetSignature(*signature)
	}

	row, err := builder.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("insert audit step for case %s: %w", in.CaseID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit audit step for case %s: %w", in.CaseID, err)
	}

	return stepFromEnt(row), nil
}

// FetchCaseSteps returns a case's steps in insertion order.
func (s *Store) FetchCaseSteps(ctx context.Context, caseID string, limit, offset int) ([]*Step, error) {
	query := s.client.AuditStep.Query().
		Where(auditstep.CaseIDEQ(caseID)).
		Order(ent.Asc(auditstep.FieldSequenceNumber))
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	rows, err := query.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch audit steps for case %s: %w", caseID, err)
	}

	steps := make([]*Step, len(rows))
	for i, row := range rows {
		steps[i] = stepFromEnt(row)
	}
	return steps, nil
}

// VerifyIntegrity walks a case's chain in order, recomputing each hash and
// checking linkage against the previous row's hash. A mismatch is recorded
// in Errors, not returned as an error: integrity problems are a reportable
// outcome, never silently fixed.
func (s *Store) VerifyIntegrity(ctx context.Context, caseID string) (*IntegrityReport, error) {
	rows, err := s.client.AuditStep.Query().
		Where(auditstep.CaseIDEQ(caseID)).
		Order(ent.Asc(auditstep.FieldSequenceNumber)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch audit steps for case %s: %w", caseID, err)
	}

	report := &IntegrityReport{Valid: true, TotalSteps: len(rows)}

	var expectedPrevHash *string
	for _, row := range rows {
		if (row.PrevHash == nil) != (expectedPrevHash == nil) ||
			(row.PrevHash != nil && expectedPrevHash != nil && *row.PrevHash != *expectedPrevHash) {
			report.Valid = false
			report.Errors = append(report.Errors, fmt.Sprintf(
				"step %s (seq %d): prev_hash linkage mismatch", row.ID, row.SequenceNumber))
		}

		payload := hashablePayload{
			StepID:         row.ID,
			CaseID:         row.CaseID,
			SequenceNumber: row.SequenceNumber,
			CreatedAt:      row.CreatedAt,
			AgentName:      row.AgentName,
			AgentRole:      row.AgentRole,
			Model:          row.Model,
			PromptVersion:  row.PromptVersion,
			AutonomyLevel:  row.AutonomyLevel,
			Inputs:         row.Inputs,
			Plan:           row.Plan,
			Observations:   row.Observations,
			Outputs:        row.Outputs,
			Tokens: TokenUsage{
				InputTokens:  row.InputTokens,
				OutputTokens: row.OutputTokens,
				TotalTokens:  row.TotalTokens,
				CostUSD:      row.CostUsd,
			},
		}
		canonical, err := canonicalJSON(payload)
		if err != nil {
			report.Valid = false
			report.Errors = append(report.Errors, fmt.Sprintf(
				"step %s (seq %d): canonicalization failed: %v", row.ID, row.SequenceNumber, err))
			continue
		}
		expected := computeHash(row.PrevHash, canonical)
		if expected != row.Hash {
			report.Valid = false
			report.Errors = append(report.Errors, fmt.Sprintf(
				"step %s (seq %d): hash mismatch", row.ID, row.SequenceNumber))
		} else {
			report.VerifiedSteps++
		}

		hash := row.Hash
		expectedPrevHash = &hash
	}

	return report, nil
}

// GetCaseSummary aggregates the chain for a case. Audit chains are bounded
// by a single pipeline run, so aggregating in-process over the full chain
// is simpler than a SQL aggregate query and still cheap.
func (s *Store) GetCaseSummary(ctx context.Context, caseID string) (*CaseSummary, error) {
	rows, err := s.client.AuditStep.Query().
		Where(auditstep.CaseIDEQ(caseID)).
		Order(ent.Asc(auditstep.FieldSequenceNumber)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch audit steps for case %s: %w", caseID, err)
	}

	summary := &CaseSummary{TotalSteps: len(rows)}
	if len(rows) == 0 {
		return summary, nil
	}

	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		summary.TotalCostUSD += row.CostUsd
		summary.TotalTokens += row.TotalTokens
		if !seen[row.AgentName] {
			seen[row.AgentName] = true
			summary.AgentsUsed = append(summary.AgentsUsed, row.AgentName)
		}
	}

	first := rows[0].CreatedAt
	last := rows[len(rows)-1].CreatedAt
	summary.FirstStep = &first
	summary.LastStep = &last

	return summary, nil
}

func stepFromEnt(row *ent.AuditStep) *Step {
	return &Step{
		StepID:         row.ID,
		CaseID:         row.CaseID,
		SequenceNumber: row.SequenceNumber,
		CreatedAt:      row.CreatedAt,
		AgentName:      row.AgentName,
		AgentRole:      row.AgentRole,
		Model:          row.Model,
		PromptVersion:  row.PromptVersion,
		AutonomyLevel:  row.AutonomyLevel,
		Inputs:         row.Inputs,
		Plan:           row.Plan,
		Observations:   row.Observations,
		Outputs:        row.Outputs,
		Tokens: TokenUsage{
			InputTokens:  row.InputTokens,
			OutputTokens: row.OutputTokens,
			TotalTokens:  row.TotalTokens,
			CostUSD:      row.CostUsd,
		},
		PrevHash:  row.PrevHash,
		Hash:      row.Hash,
		Signature: row.Signature,
	}
}

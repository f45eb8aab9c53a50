package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/caseforge/caseforge/ent"
	"github.com/caseforge/caseforge/ent/caseentity"
	"github.com/caseforge/caseforge/ent/caserecord"
	"github.com/caseforge/caseforge/pkg/caseerrors"
	"github.com/caseforge/caseforge/pkg/graphstore"
	"github.com/caseforge/caseforge/pkg/models"
	"github.com/caseforge/caseforge/pkg/similarity"
)

// CaseService persists case records and their entity bags, and implements
// orchestrator.CaseStore. Case creation ("get-or-create on first enrichment
// request") is a CaseService concern; mutation of an existing case's
// lifecycle fields belongs to the orchestrator alone.
type CaseService struct {
	client *ent.Client
	graph  *graphstore.Store // optional; nil disables graph mirroring
}

// NewCaseService builds a CaseService. graph may be nil.
func NewCaseService(client *ent.Client, graph *graphstore.Store) *CaseService {
	if client == nil {
		panic("NewCaseService: client must not be nil")
	}
	return &CaseService{client: client, graph: graph}
}

// GetOrCreate fetches an existing case by id, or creates one in "pending"
// status with the given autonomy level if this is the first time the id
// has been seen.
func (s *CaseService) GetOrCreate(ctx context.Context, caseID string, autonomy models.AutonomyLevel) (*models.Case, error) {
	existing, err := s.Get(ctx, caseID)
	if err == nil {
		return existing, nil
	}
	if !caseerrors.Is(err, caseerrors.ErrNotFound) {
		return nil, err
	}

	if autonomy == "" {
		autonomy = models.AutonomySupervised
	}

	row, err := s.client.CaseRecord.Create().
		SetID(caseID).
		SetStatus(caserecord.StatusPending).
		SetAutonomyLevel(caserecord.AutonomyLevel(autonomy)).
		Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			// Lost a create race; the row exists now, fetch it.
			return s.Get(ctx, caseID)
		}
		return nil, fmt.Errorf("create case %s: %w", caseID, err)
	}

	return caseFromEnt(row), nil
}

// Get implements orchestrator.CaseStore.
func (s *CaseService) Get(ctx context.Context, caseID string) (*models.Case, error) {
	row, err := s.client.CaseRecord.Get(ctx, caseID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, caseerrors.NotFoundf("case %s", caseID)
		}
		return nil, fmt.Errorf("load case %s: %w", caseID, err)
	}
	return caseFromEnt(row), nil
}

// SetStatus implements orchestrator.CaseStore.
func (s *CaseService) SetStatus(ctx context.Context, caseID string, status models.CaseStatus, completedAt *time.Time) error {
	update := s.client.CaseRecord.UpdateOneID(caseID).SetStatus(caserecord.Status(status))
	if completedAt != nil {
		update = update.SetCompletedAt(*completedAt)
	}
	if err := update.Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return caseerrors.NotFoundf("case %s", caseID)
		}
		return fmt.Errorf("set case %s status: %w", caseID, err)
	}
	if s.graph != nil {
		if row, err := s.client.CaseRecord.Get(ctx, caseID); err == nil {
			_ = s.graph.MergeCase(ctx, caseID, row.Title, string(row.Severity), string(row.Status))
		}
	}
	return nil
}

// SetCurrentStep implements orchestrator.CaseStore.
func (s *CaseService) SetCurrentStep(ctx context.Context, caseID string, stage models.PipelineStage) error {
	if err := s.client.CaseRecord.UpdateOneID(caseID).SetCurrentStep(string(stage)).Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return caseerrors.NotFoundf("case %s", caseID)
		}
		return fmt.Errorf("set case %s current step: %w", caseID, err)
	}
	return nil
}

// AddUsage implements orchestrator.CaseStore, accumulating token/cost
// counters rather than overwriting them.
func (s *CaseService) AddUsage(ctx context.Context, caseID string, usage models.TokenUsage) error {
	err := s.client.CaseRecord.UpdateOneID(caseID).
		AddActualTokens(usage.TotalTokens).
		AddActualCostUsd(usage.CostUSD).
		Exec(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return caseerrors.NotFoundf("case %s", caseID)
		}
		return fmt.Errorf("add usage for case %s: %w", caseID, err)
	}
	return nil
}

// SetEntities implements orchestrator.CaseStore. It both snapshots the bag
// onto the case row (for quick reads) and replaces the case's CaseEntity
// rows (one row per entity value), and mirrors observed entities into the
// graph store when one is configured.
func (s *CaseService) SetEntities(ctx context.Context, caseID string, bag models.EntityBag) error {
	snapshot, err := bagToJSONMap(bag)
	if err != nil {
		return fmt.Errorf("encode entity bag for case %s: %w", caseID, err)
	}

	tx, err := s.client.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin set-entities transaction: %w", err)
	}
	defer tx.Rollback()

	if err := tx.CaseRecord.UpdateOneID(caseID).SetEntities(snapshot).Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return caseerrors.NotFoundf("case %s", caseID)
		}
		return fmt.Errorf("snapshot entities for case %s: %w", caseID, err)
	}

	if _, err := tx.CaseEntity.Delete().Where(caseentity.CaseIDEQ(caseID)).Exec(ctx); err != nil {
		return fmt.Errorf("clear entity rows for case %s: %w", caseID, err)
	}

	for _, rec := range bagRecords(bag) {
		_, err := tx.CaseEntity.Create().
			SetID(uuid.NewString()).
			SetCaseID(caseID).
			SetEntityType(caseentity.EntityType(rec.Type)).
			SetValue(rec.Value).
			Save(ctx)
		if err != nil {
			return fmt.Errorf("persist entity row for case %s: %w", caseID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set-entities for case %s: %w", caseID, err)
	}

	if s.graph != nil {
		for _, rec := range bagRecords(bag) {
			_ = s.graph.MergeEntity(ctx, caseID, string(rec.Type), rec.Value)
		}
	}

	return nil
}

// Bag implements similarity.BagSource, letting the similarity engine look
// up a previously-seen case's entity bag by id without depending on ent
// directly.
func (s *CaseService) Bag(ctx context.Context, caseID string) (similarity.Bag, bool, error) {
	row, err := s.client.CaseRecord.Get(ctx, caseID)
	if err != nil {
		if ent.IsNotFound(err) {
			return similarity.Bag{}, false, nil
		}
		return similarity.Bag{}, false, fmt.Errorf("load case %s for similarity: %w", caseID, err)
	}
	bag := bagFromJSONMap(row.Entities)
	ruleID := ""
	if row.ThreatClassification != nil {
		ruleID = *row.ThreatClassification
	}
	return similarity.Bag{
		CaseID:    row.ID,
		Users:     bag.Users,
		IPs:       bag.IPs,
		Hosts:     bag.Hosts,
		Domains:   bag.Domains,
		RuleID:    ruleID,
		Timestamp: row.CreatedAt,
	}, true, nil
}

// ListActive returns cases not yet in a terminal status.
func (s *CaseService) ListActive(ctx context.Context) ([]*models.Case, error) {
	rows, err := s.client.CaseRecord.Query().
		Where(caserecord.StatusIn(caserecord.StatusPending, caserecord.StatusAnalyzing)).
		Order(ent.Desc(caserecord.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active cases: %w", err)
	}
	return casesFromEnt(rows), nil
}

// ListAll returns a page of cases ordered newest-first, plus the total count
// matching no filter.
func (s *CaseService) ListAll(ctx context.Context, limit, offset int) ([]*models.Case, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := s.client.CaseRecord.Query()
	total, err := query.Clone().Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count cases: %w", err)
	}

	rows, err := query.
		Order(ent.Desc(caserecord.FieldCreatedAt)).
		Limit(limit).
		Offset(offset).
		All(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list cases: %w", err)
	}

	return casesFromEnt(rows), total, nil
}

type entityRecord struct {
	Type  models.EntityType
	Value string
}

func bagRecords(bag models.EntityBag) []entityRecord {
	var out []entityRecord
	for _, v := range bag.Users {
		out = append(out, entityRecord{models.EntityUser, v})
	}
	for _, v := range bag.Hosts {
		out = append(out, entityRecord{models.EntityHost, v})
	}
	for _, v := range bag.IPs {
		out = append(out, entityRecord{models.EntityIP, v})
	}
	for _, v := range bag.Domains {
		out = append(out, entityRecord{models.EntityDomain, v})
	}
	for _, v := range bag.Hashes {
		out = append(out, entityRecord{models.EntityHash, v})
	}
	return out
}

func bagToJSONMap(bag models.EntityBag) (map[string]interface{}, error) {
	encoded, err := json.Marshal(bag)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func bagFromJSONMap(raw map[string]interface{}) models.EntityBag {
	var bag models.EntityBag
	if raw == nil {
		return bag
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return bag
	}
	_ = json.Unmarshal(encoded, &bag)
	return bag
}

func caseFromEnt(row *ent.CaseRecord) *models.Case {
	c := &models.Case{
		ID:            row.ID,
		Title:         row.Title,
		Description:   row.Description,
		Severity:      models.Severity(row.Severity),
		Status:        models.CaseStatus(row.Status),
		AutonomyLevel: models.AutonomyLevel(row.AutonomyLevel),
		Entities:      bagFromJSONMap(row.Entities),
		ActualCostUSD: row.ActualCostUsd,
		ActualTokens:  row.ActualTokens,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		CompletedAt:   row.CompletedAt,
	}
	if row.CurrentStep != nil {
		c.CurrentStep = models.PipelineStage(*row.CurrentStep)
	}
	if row.ThreatClassification != nil {
		c.ThreatClassification = *row.ThreatClassification
	}
	return c
}

func casesFromEnt(rows []*ent.CaseRecord) []*models.Case {
	out := make([]*models.Case, len(rows))
	for i, row := range rows {
		out[i] = caseFromEnt(row)
	}
	return out
}

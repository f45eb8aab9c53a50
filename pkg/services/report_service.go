package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/caseforge/caseforge/ent"
	"github.com/caseforge/caseforge/ent/reportartifact"
	"github.com/caseforge/caseforge/pkg/caseerrors"
	"github.com/caseforge/caseforge/pkg/config"
)

// ReportService writes finished-stage report content to disk and records a
// pointer row for it, implementing orchestrator.ReportWriter.
type ReportService struct {
	client    *ent.Client
	outputDir string
}

// NewReportService builds a ReportService rooted at cfg.OutputDir.
func NewReportService(client *ent.Client, cfg config.ReportConfig) *ReportService {
	return &ReportService{client: client, outputDir: cfg.OutputDir}
}

// Persist implements orchestrator.ReportWriter: it marshals content to
// indented JSON, writes it under <outputDir>/<caseID>/<reportType>.json, and
// records a ReportArtifact row pointing at the file.
func (s *ReportService) Persist(ctx context.Context, caseID, reportType string, content map[string]interface{}) (string, error) {
	dir := filepath.Join(s.outputDir, caseID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory for case %s: %w", caseID, err)
	}

	path := filepath.Join(dir, reportType+".json")
	encoded, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report %s for case %s: %w", reportType, caseID, err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return "", fmt.Errorf("write report %s for case %s: %w", reportType, caseID, err)
	}

	_, err = s.client.ReportArtifact.Create().
		SetID(uuid.NewString()).
		SetCaseID(caseID).
		SetReportType(reportType).
		SetFilePath(path).
		Save(ctx)
	if err != nil {
		return "", fmt.Errorf("record report artifact %s for case %s: %w", reportType, caseID, err)
	}

	return path, nil
}

// ListReports returns every report artifact recorded for a case, newest
// first.
func (s *ReportService) ListReports(ctx context.Context, caseID string) ([]*ent.ReportArtifact, error) {
	rows, err := s.client.ReportArtifact.Query().
		Where(reportartifact.CaseIDEQ(caseID)).
		Order(ent.Desc(reportartifact.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reports for case %s: %w", caseID, err)
	}
	return rows, nil
}

// GetReportPath resolves the on-disk path of the most recent artifact for a
// case and report type.
func (s *ReportService) GetReportPath(ctx context.Context, caseID, reportType string) (string, error) {
	row, err := s.client.ReportArtifact.Query().
		Where(
			reportartifact.CaseIDEQ(caseID),
			reportartifact.ReportTypeEQ(reportType),
		).
		Order(ent.Desc(reportartifact.FieldCreatedAt)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return "", caseerrors.NotFoundf("report %s for case %s", reportType, caseID)
		}
		return "", fmt.Errorf("load report %s for case %s: %w", reportType, caseID, err)
	}
	return row.FilePath, nil
}

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/caseforge/caseforge/pkg/caseerrors"
	"github.com/caseforge/caseforge/pkg/models"
	"github.com/caseforge/caseforge/pkg/queue"
)

var validAutonomyLevels = map[string]models.AutonomyLevel{
	string(models.AutonomyManual):     models.AutonomyManual,
	string(models.AutonomySupervised): models.AutonomySupervised,
	string(models.AutonomyAutonomous): models.AutonomyAutonomous,
	string(models.AutonomyResearch):   models.AutonomyResearch,
}

// enrichCaseHandler handles POST /cases/:case_id/enrich. It creates the case
// row on first request for this id, then runs it synchronously through the
// orchestrator pipeline: 200 with the result, 500 on uncaught failure.
func (s *Server) enrichCaseHandler(c *gin.Context) {
	caseID := c.Param("case_id")

	var req enrichCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		respondError(c, caseerrors.InvalidInputf("invalid request body: %v", err))
		return
	}

	autonomy := models.AutonomySupervised
	if req.AutonomyLevel != "" {
		level, ok := validAutonomyLevels[req.AutonomyLevel]
		if !ok {
			respondError(c, caseerrors.InvalidInputf("unknown autonomy_level %q", req.AutonomyLevel))
			return
		}
		autonomy = level
	}
	maxDepth := req.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 2
	}

	if _, err := s.cases.GetOrCreate(c.Request.Context(), caseID, autonomy); err != nil {
		respondError(c, err)
		return
	}

	result, err := s.dispatcher.Submit(c.Request.Context(), queue.Request{
		CaseID:         caseID,
		AutonomyLevel:  autonomy,
		MaxDepth:       maxDepth,
		IncludeRawLogs: req.IncludeRawLogs,
	})
	if err != nil {
		if err == queue.ErrAtCapacity {
			c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "queue at capacity"})
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// listActiveCasesHandler handles GET /api/cases/active.
func (s *Server) listActiveCasesHandler(c *gin.Context) {
	rows, err := s.cases.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCaseResponses(rows))
}

// listAllCasesHandler handles GET /api/cases/all.
func (s *Server) listAllCasesHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 50
	}

	rows, total, err := s.cases.ListAll(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cases": toCaseResponses(rows),
		"total": total,
	})
}

// getCaseAnalysisHandler handles GET /api/cases/:id/analysis.
func (s *Server) getCaseAnalysisHandler(c *gin.Context) {
	row, err := s.cases.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCaseResponse(row))
}

// listCaseReportsHandler handles GET /api/cases/:id/reports.
func (s *Server) listCaseReportsHandler(c *gin.Context) {
	rows, err := s.reports.ListReports(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]reportRefResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, reportRefResponse{
			ID:         r.ID,
			CaseID:     r.CaseID,
			ReportType: r.ReportType,
			FilePath:   r.FilePath,
			CreatedAt:  r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// downloadReportHandler handles GET /api/reports/:id/download/:report_type.
// :id is the case id the report belongs to, matching the other /api/cases/:id
// routes' use of "id" for a case identifier.
func (s *Server) downloadReportHandler(c *gin.Context) {
	path, err := s.reports.GetReportPath(c.Request.Context(), c.Param("id"), c.Param("report_type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, c.Param("report_type")+".json")
}

func toCaseResponse(row *models.Case) caseResponse {
	return caseResponse{
		ID:                   row.ID,
		Title:                row.Title,
		Description:          row.Description,
		Severity:             string(row.Severity),
		Status:               string(row.Status),
		CurrentStep:          string(row.CurrentStep),
		AutonomyLevel:        string(row.AutonomyLevel),
		ThreatClassification: row.ThreatClassification,
		ActualCostUSD:        row.ActualCostUSD,
		ActualTokens:         row.ActualTokens,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
		CompletedAt:          row.CompletedAt,
	}
}

func toCaseResponses(rows []*models.Case) []caseResponse {
	out := make([]caseResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCaseResponse(row))
	}
	return out
}

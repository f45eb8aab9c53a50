package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caseforge/caseforge/pkg/approval"
	"github.com/caseforge/caseforge/pkg/caseerrors"
)

// listApprovalsHandler handles GET /api/approvals. ?case_id= scopes the
// listing to one case; omitted, it returns every pending approval.
func (s *Server) listApprovalsHandler(c *gin.Context) {
	var caseID *string
	if v := c.Query("case_id"); v != "" {
		caseID = &v
	}

	rows, err := s.approvals.ListPending(c.Request.Context(), caseID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]approvalResponse, 0, len(rows))
	for _, a := range rows {
		out = append(out, toApprovalResponse(a))
	}
	c.JSON(http.StatusOK, out)
}

// approvalStatsHandler handles GET /api/approvals/stats.
func (s *Server) approvalStatsHandler(c *gin.Context) {
	stats, err := s.approvals.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, approvalStatsResponse{
		Pending:             stats.Pending,
		Approved:            stats.Approved,
		Rejected:            stats.Rejected,
		Expired:             stats.Expired,
		Total:               stats.Total,
		AverageDecisionWait: stats.AverageDecisionWait.String(),
	})
}

// decideApprovalHandler handles POST /api/approvals/:id/decide.
func (s *Server) decideApprovalHandler(c *gin.Context) {
	var req decideApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, caseerrors.InvalidInputf("invalid request body: %v", err))
		return
	}
	s.decide(c, req.Approved, req.By, req.Reason)
}

// approveApprovalHandler handles POST /api/approvals/:id/approve.
func (s *Server) approveApprovalHandler(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, caseerrors.InvalidInputf("invalid request body: %v", err))
		return
	}
	s.decide(c, true, req.By, req.Reason)
}

// rejectApprovalHandler handles POST /api/approvals/:id/reject.
func (s *Server) rejectApprovalHandler(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, caseerrors.InvalidInputf("invalid request body: %v", err))
		return
	}
	s.decide(c, false, req.By, req.Reason)
}

func (s *Server) decide(c *gin.Context, approved bool, by string, reason *string) {
	decision, err := s.approvals.Decide(c.Request.Context(), c.Param("id"), approved, by, reason)
	if err != nil {
		respondError(c, err)
		return
	}
	switch decision {
	case approval.DecisionNotFound:
		respondError(c, caseerrors.NotFoundf("approval %s not found", c.Param("id")))
	case approval.DecisionAlreadyDecided:
		c.JSON(http.StatusConflict, errorResponse{Error: "approval already decided"})
	default:
		row, err := s.approvals.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toApprovalResponse(row))
	}
}

func toApprovalResponse(a *approval.Approval) approvalResponse {
	return approvalResponse{
		ID:          a.ID,
		CaseID:      a.CaseID,
		Stage:       a.Stage,
		Description: a.Description,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		ExpiresAt:   a.ExpiresAt,
		DecidedBy:   a.DecidedBy,
		DecidedAt:   a.DecidedAt,
		Reason:      a.Reason,
	}
}

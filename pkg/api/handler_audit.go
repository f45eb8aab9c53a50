package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// getAuditTrailHandler handles GET /audit/:case_id.
func (s *Server) getAuditTrailHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 100
	}

	steps, err := s.audit.FetchCaseSteps(c.Request.Context(), c.Param("case_id"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	summary, err := s.audit.GetCaseSummary(c.Request.Context(), c.Param("case_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"steps":   steps,
		"summary": summary,
	})
}

// verifyAuditChainHandler handles GET /audit/verify/:case_id.
func (s *Server) verifyAuditChainHandler(c *gin.Context) {
	report, err := s.audit.VerifyIntegrity(c.Request.Context(), c.Param("case_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

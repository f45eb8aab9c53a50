package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// tokenStatsHandler handles GET /api/stats/tokens.
func (s *Server) tokenStatsHandler(c *gin.Context) {
	stats, err := s.stats.TokenUsage(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenStatsResponse{
		TotalCases:   stats.TotalCases,
		TotalTokens:  stats.TotalTokens,
		TotalCostUSD: stats.TotalCostUSD,
	})
}

// slaStatsHandler handles GET /api/stats/sla.
func (s *Server) slaStatsHandler(c *gin.Context) {
	if s.sla == nil {
		c.JSON(http.StatusOK, []slaSnapshotResponse{})
		return
	}
	snapshots := s.sla.Snapshots()
	out := make([]slaSnapshotResponse, 0, len(snapshots))
	for _, snap := range snapshots {
		out = append(out, slaSnapshotResponse{
			Stage:               snap.Stage,
			MaxDuration:         snap.MaxDuration.String(),
			ConsecutiveBreaches: snap.ConsecutiveBreaches,
		})
	}
	c.JSON(http.StatusOK, out)
}

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/caseforge/caseforge/pkg/caseerrors"
)

// ingestKnowledgeHandler handles POST /knowledge/ingest.
func (s *Server) ingestKnowledgeHandler(c *gin.Context) {
	var req ingestKnowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, caseerrors.InvalidInputf("invalid request body: %v", err))
		return
	}

	id, err := s.knowledge.Ingest(c.Request.Context(), req.Title, req.Content, req.Kind, req.Tags, req.Author)
	if err != nil {
		respondError(c, caseerrors.InvalidInputf("%v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"knowledge_id": id})
}

// searchKnowledgeHandler handles GET /knowledge/search.
func (s *Server) searchKnowledgeHandler(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		respondError(c, caseerrors.InvalidInputf("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	hits, err := s.knowledge.Search(c.Request.Context(), query, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]knowledgeHitResponse, 0, len(hits))
	for _, h := range hits {
		out = append(out, knowledgeHitResponse{ID: h.ID, Score: h.Score, Payload: h.Payload})
	}
	c.JSON(http.StatusOK, out)
}

// knowledgeGraphHandler handles GET /api/knowledge-graph.
func (s *Server) knowledgeGraphHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
	if limit <= 0 {
		limit = 200
	}

	nodes, edges, summary, err := s.knowledge.GraphSnapshot(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"nodes":   nodes,
		"edges":   edges,
		"summary": summary,
	})
}

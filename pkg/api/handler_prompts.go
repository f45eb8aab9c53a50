package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caseforge/caseforge/pkg/caseerrors"
)

// getPromptHandler handles GET /prompts/:agent_name. ?version= selects a
// specific version; omitted, it resolves to the active version.
func (s *Server) getPromptHandler(c *gin.Context) {
	agentName := c.Param("agent_name")
	version := c.Query("version")

	content, err := s.prompts.Get(c.Request.Context(), agentName, version)
	if err != nil {
		respondError(c, err)
		return
	}

	info, err := s.prompts.GetInfo(c.Request.Context(), agentName, version)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"agent_name":  agentName,
		"content":     content,
		"version":     info.Version,
		"created_at":  info.CreatedAt,
		"modified_by": info.ModifiedBy,
	})
}

// getLatestPromptHandler handles GET /prompts/:agent_name/latest.
func (s *Server) getLatestPromptHandler(c *gin.Context) {
	versions, err := s.prompts.ListVersions(c.Request.Context(), c.Param("agent_name"))
	if err != nil {
		respondError(c, err)
		return
	}
	if len(versions) == 0 {
		respondError(c, caseerrors.NotFoundf("no prompt versions for agent %s", c.Param("agent_name")))
		return
	}
	latest := versions[len(versions)-1]

	content, err := s.prompts.Get(c.Request.Context(), c.Param("agent_name"), latest)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"agent_name": c.Param("agent_name"),
		"version":    latest,
		"content":    content,
	})
}

// updatePromptHandler handles POST /prompts/:agent_name.
func (s *Server) updatePromptHandler(c *gin.Context) {
	var req updatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, caseerrors.InvalidInputf("invalid request body: %v", err))
		return
	}

	version, err := s.prompts.Update(c.Request.Context(), c.Param("agent_name"), req.Content, req.ModifiedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"agent_name": c.Param("agent_name"),
		"version":    version,
	})
}

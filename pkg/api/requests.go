package api

// enrichCaseRequest is the HTTP request body for POST /cases/:case_id/enrich.
type enrichCaseRequest struct {
	AutonomyLevel  string `json:"autonomy_level"`
	MaxDepth       int    `json:"max_depth"`
	IncludeRawLogs bool   `json:"include_raw_logs"`
}

// updatePromptRequest is the HTTP request body for POST /prompts/:agent_name.
type updatePromptRequest struct {
	Content    string `json:"content" binding:"required"`
	ModifiedBy string `json:"modified_by" binding:"required"`
}

// decideApprovalRequest is the HTTP request body for
// POST /api/approvals/:id/decide.
type decideApprovalRequest struct {
	Approved bool    `json:"approved"`
	By       string  `json:"by" binding:"required"`
	Reason   *string `json:"reason,omitempty"`
}

// actorRequest is the HTTP request body for the approve/reject shorthand
// routes, where the decision is implied by the route itself.
type actorRequest struct {
	By     string  `json:"by" binding:"required"`
	Reason *string `json:"reason,omitempty"`
}

// ingestKnowledgeRequest is the HTTP request body for POST /knowledge/ingest.
type ingestKnowledgeRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content" binding:"required"`
	Kind    string   `json:"kind"`
	Tags    []string `json:"tags,omitempty"`
	Author  string   `json:"author"`
}

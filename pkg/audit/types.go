// Package audit implements the durable, append-only, hash-linked log of
// agent steps, with optional Ed25519 signatures and chain integrity
// verification.
package audit

import "time"

// TokenUsage records per-step token and cost accounting.
type TokenUsage struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalTokens  int64   `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// StepInput is the caller-supplied content of one agent invocation, prior
// to sequencing and hashing.
type StepInput struct {
	CaseID        string
	AgentName     string
	AgentRole     string
	Model         string
	PromptVersion string
	AutonomyLevel string
	Inputs        map[string]interface{}
	Plan          []interface{}
	Observations  []interface{}
	Outputs       map[string]interface{}
	Tokens        TokenUsage
}

// Step is a fully-assigned, persisted audit chain entry.
type Step struct {
	StepID         string
	CaseID         string
	SequenceNumber int
	CreatedAt      time.Time
	AgentName      string
	AgentRole      string
	Model          string
	PromptVersion  string
	AutonomyLevel  string
	Inputs         map[string]interface{}
	Plan           []interface{}
	Observations   []interface{}
	Outputs        map[string]interface{}
	Tokens         TokenUsage
	PrevHash       *string
	Hash           string
	Signature      *string
}

// hashablePayload is the exact set of fields folded into the step hash.
// step_id and created_at are included deliberately: the idempotency
// contract only guarantees identical hash *inputs* across retries except
// for these two fields.
type hashablePayload struct {
	StepID         string                 `json:"step_id"`
	CaseID         string                 `json:"case_id"`
	SequenceNumber int                    `json:"sequence_number"`
	CreatedAt      time.Time              `json:"created_at"`
	AgentName      string                 `json:"agent_name"`
	AgentRole      string                 `json:"agent_role"`
	Model          string                 `json:"model"`
	PromptVersion  string                 `json:"prompt_version"`
	AutonomyLevel  string                 `json:"autonomy_level"`
	Inputs         map[string]interface{} `json:"inputs,omitempty"`
	Plan           []interface{}          `json:"plan,omitempty"`
	Observations   []interface{}          `json:"observations,omitempty"`
	Outputs        map[string]interface{} `json:"outputs,omitempty"`
	Tokens         TokenUsage             `json:"token_usage"`
}

// IntegrityReport is the result of walking a case's chain and recomputing
// every hash and linkage.
type IntegrityReport struct {
	Valid         bool
	TotalSteps    int
	VerifiedSteps int
	Errors        []string
}

// CaseSummary aggregates the chain for a case.
type CaseSummary struct {
	TotalSteps   int
	FirstStep    *time.Time
	LastStep     *time.Time
	TotalCostUSD float64
	TotalTokens  int64
	AgentsUsed   []string
}

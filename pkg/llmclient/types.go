// Package llmclient adapts the LLM backend the agent runtime calls into a
// small, vendor-neutral interface, with per-model cost accounting.
package llmclient

import "context"

// TokenUsage mirrors the audit chain's token accounting fields.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// Request is one LLM call.
type Request struct {
	Model             string
	Prompt            string
	SystemInstruction string
	Temperature       float64
	MaxOutputTokens   int64
}

// Adapter runs one LLM call and returns its text response plus priced
// token usage.
type Adapter interface {
	Run(ctx context.Context, req Request) (response string, usage TokenUsage, err error)
}

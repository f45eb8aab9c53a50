package llmclient

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/caseforge/caseforge/pkg/telemetry"
)

// AnthropicAdapter implements Adapter against the Anthropic Messages API.
type AnthropicAdapter struct {
	client  anthropic.Client
	pricing PricingTable
}

// NewAnthropicAdapter builds an AnthropicAdapter authenticated with apiKey.
// pricing prices completed calls; pass DefaultPricingTable() if no
// configuration override is available.
func NewAnthropicAdapter(apiKey string, pricing PricingTable) *AnthropicAdapter {
	return &AnthropicAdapter{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		pricing: pricing,
	}
}

// Run implements Adapter.
func (a *AnthropicAdapter) Run(ctx context.Context, req Request) (string, TokenUsage, error) {
	ctx, span := telemetry.StartLLMCallSpan(ctx, req.Model, "anthropic")
	var inputTokens, outputTokens int64
	defer func() { telemetry.EndLLMCallSpan(span, inputTokens, outputTokens) }()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: req.MaxOutputTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if req.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemInstruction}}
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", TokenUsage{}, fmt.Errorf("anthropic messages.new: %w", err)
	}

	var response string
	for _, block := range message.Content {
		if block.Type == "text" {
			response += block.Text
		}
	}

	inputTokens = message.Usage.InputTokens
	outputTokens = message.Usage.OutputTokens
	usage := TokenUsage{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		CostUSD:      a.pricing.Cost(req.Model, inputTokens, outputTokens),
	}

	return response, usage, nil
}

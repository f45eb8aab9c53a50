package llmclient

import "github.com/shopspring/decimal"

// ModelPrice is one model's per-million-token pricing. Externalized to
// configuration (loaded by pkg/config) rather than hard-coded, since
// pricing changes independently of a release.
type ModelPrice struct {
	InputPerMillionUSD  float64
	OutputPerMillionUSD float64
}

// PricingTable maps model name to its price. Callers load this from
// configuration; DefaultPricingTable supplies a baseline for local
// development and tests.
type PricingTable map[string]ModelPrice

// DefaultPricingTable holds Anthropic's published per-model rates at the
// time of writing, as a development default. Production deployments
// override this from configuration.
func DefaultPricingTable() PricingTable {
	return PricingTable{
		"claude-opus-4":   {InputPerMillionUSD: 15.00, OutputPerMillionUSD: 75.00},
		"claude-sonnet-4": {InputPerMillionUSD: 3.00, OutputPerMillionUSD: 15.00},
		"claude-haiku-4":  {InputPerMillionUSD: 0.80, OutputPerMillionUSD: 4.00},
	}
}

// Cost computes cost = input_tokens/1e6*in_price + output_tokens/1e6*out_price,
// rounded to 6 decimals using decimal arithmetic so accumulated per-step
// costs don't drift from float64 rounding error over a long-running case.
// An unknown model prices at zero rather than erroring, since a
// priced-zero step is recoverable while an aborted step is not.
func (t PricingTable) Cost(model string, inputTokens, outputTokens int64) float64 {
	price, ok := t[model]
	if !ok {
		return 0
	}
	million := decimal.NewFromInt(1_000_000)
	inputCost := decimal.NewFromInt(inputTokens).Div(million).Mul(decimal.NewFromFloat(price.InputPerMillionUSD))
	outputCost := decimal.NewFromInt(outputTokens).Div(million).Mul(decimal.NewFromFloat(price.OutputPerMillionUSD))
	total := inputCost.Add(outputCost).Round(6)
	result, _ := total.Float64()
	return result
}

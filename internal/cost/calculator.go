// Package cost estimates language-model spend from token usage.
package cost

import "github.com/sells-group/newsdesk/internal/model"

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Rates maps a model name to its pricing.
type Rates map[string]ModelRate

// Calculator computes costs for model usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Estimate returns the USD cost of usage on the named model. Unknown
// models cost 0.
func (c *Calculator) Estimate(modelName string, usage model.TokenUsage) float64 {
	rate, ok := c.rates[modelName]
	if !ok {
		return 0
	}
	in := (float64(usage.PromptTokens) / 1e6) * rate.Input
	out := (float64(usage.CompletionTokens) / 1e6) * rate.Output
	return in + out
}

// For returns an estimator bound to one model.
func (c *Calculator) For(modelName string) func(model.TokenUsage) float64 {
	return func(u model.TokenUsage) float64 {
		return c.Estimate(modelName, u)
	}
}

// DefaultRates returns list prices for the default model of each provider.
func DefaultRates() Rates {
	return Rates{
		"deepseek-chat":             {Input: 0.27, Output: 1.10},
		"gpt-4o-mini":               {Input: 0.15, Output: 0.60},
		"claude-haiku-4-5-20251001": {Input: 0.80, Output: 4.00},
		"gemini-1.5-flash":          {Input: 0.075, Output: 0.30},
	}
}

package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/newsdesk/internal/model"
)

func TestEstimate(t *testing.T) {
	c := NewCalculator(DefaultRates())

	tests := []struct {
		name  string
		model string
		usage model.TokenUsage
		want  float64
	}{
		{"deepseek", "deepseek-chat", model.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000}, 1.37},
		{"haiku input only", "claude-haiku-4-5-20251001", model.TokenUsage{PromptTokens: 500_000}, 0.40},
		{"gemini output only", "gemini-1.5-flash", model.TokenUsage{CompletionTokens: 2_000_000}, 0.60},
		{"zero usage", "gpt-4o-mini", model.TokenUsage{}, 0},
		{"unknown model", "mystery-model", model.TokenUsage{PromptTokens: 1_000_000}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, c.Estimate(tt.model, tt.usage), 1e-9)
		})
	}
}

func TestFor(t *testing.T) {
	c := NewCalculator(Rates{"m": {Input: 2, Output: 4}})
	est := c.For("m")
	assert.InDelta(t, 6.0, est(model.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000}), 1e-9)
}

func TestDefaultRates_CoverProviderDefaults(t *testing.T) {
	rates := DefaultRates()
	for _, m := range []string{"deepseek-chat", "gpt-4o-mini", "claude-haiku-4-5-20251001", "gemini-1.5-flash"} {
		r, ok := rates[m]
		assert.True(t, ok, m)
		assert.Greater(t, r.Input, 0.0)
		assert.Greater(t, r.Output, 0.0)
	}
}

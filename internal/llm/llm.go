// Package llm adapts the configured language-model provider to a single
// completion interface used by the classifier and the transformer.
package llm

import (
	"context"
)

// Request is a single-turn completion request.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Response is the model's text reply and the tokens it consumed.
type Response struct {
	Text             string
	PromptTokens     int64
	CompletionTokens int64
}

// Client completes one prompt.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

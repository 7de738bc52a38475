package llm

import (
	"context"
	"sync/atomic"

	"github.com/sells-group/newsdesk/internal/model"
	"github.com/sells-group/newsdesk/internal/resilience"
)

// Guard decorates a Client with retries, a circuit breaker and token
// accounting. It is safe for concurrent use.
type Guard struct {
	next    Client
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker

	prompt     atomic.Int64
	completion atomic.Int64
	calls      atomic.Int64
}

// NewGuard wraps next.
func NewGuard(next Client, retry resilience.RetryConfig, breaker *resilience.CircuitBreaker) *Guard {
	return &Guard{next: next, retry: retry, breaker: breaker}
}

// Complete implements Client.
func (g *Guard) Complete(ctx context.Context, req Request) (*Response, error) {
	return resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*Response, error) {
		call := func(ctx context.Context) (*Response, error) {
			g.calls.Add(1)
			resp, err := g.next.Complete(ctx, req)
			if err != nil {
				return nil, err
			}
			g.prompt.Add(resp.PromptTokens)
			g.completion.Add(resp.CompletionTokens)
			return resp, nil
		}
		if g.breaker == nil {
			return call(ctx)
		}
		return resilience.ExecuteVal(ctx, g.breaker, call)
	})
}

// Usage returns the tokens consumed since construction or the last Reset.
func (g *Guard) Usage() model.TokenUsage {
	return model.TokenUsage{
		PromptTokens:     g.prompt.Load(),
		CompletionTokens: g.completion.Load(),
		Calls:            g.calls.Load(),
	}
}

// Reset zeroes the usage counters.
func (g *Guard) Reset() {
	g.prompt.Store(0)
	g.completion.Store(0)
	g.calls.Store(0)
}

package llm

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/newsdesk/internal/config"
	"github.com/sells-group/newsdesk/internal/resilience"
	"github.com/sells-group/newsdesk/pkg/anthropic"
	"github.com/sells-group/newsdesk/pkg/chat"
	"github.com/sells-group/newsdesk/pkg/gemini"
)

// Provider names accepted in llm.provider.
const (
	ProviderDeepSeek  = "deepseek"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	openAIModel   = "gpt-4o-mini"
)

// NewGuarded builds the configured provider wrapped in a Guard. It returns
// (nil, nil) when no credential is configured; callers treat a nil Client
// as "no model available". The returned closer must be called on shutdown.
func NewGuarded(ctx context.Context, cfg config.LLMConfig) (*Guard, func() error, error) {
	noop := func() error { return nil }
	if !cfg.Configured() {
		return nil, noop, nil
	}

	base, closer, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, noop, err
	}

	retry := resilience.FromRetryConfig(cfg.MaxAttempts, 0)
	retry.OnRetry = resilience.RetryLogger(cfg.Provider, "complete")

	cbCfg := resilience.FromCircuitConfig(cfg.CircuitFailureThreshold, cfg.CircuitResetSecs)
	cbCfg.ShouldTrip = resilience.IsTransient
	cbCfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("llm: circuit state changed",
			zap.String("provider", cfg.Provider),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	return NewGuard(base, retry, resilience.NewCircuitBreaker(cbCfg)), closer, nil
}

func newProvider(ctx context.Context, cfg config.LLMConfig) (Client, func() error, error) {
	noop := func() error { return nil }
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	model := ModelName(cfg)

	switch cfg.Provider {
	case ProviderDeepSeek, "":
		c := chat.NewClient(cfg.APIKey,
			chat.WithBaseURL(pick(cfg.BaseURL, chat.DefaultBaseURL, chat.DefaultBaseURL)),
			chat.WithModel(model),
			chat.WithTimeout(timeout),
		)
		return NewChatAdapter(c, model), noop, nil

	case ProviderOpenAI:
		c := chat.NewClient(cfg.APIKey,
			chat.WithBaseURL(pick(cfg.BaseURL, chat.DefaultBaseURL, openAIBaseURL)),
			chat.WithModel(model),
			chat.WithTimeout(timeout),
		)
		return NewChatAdapter(c, model), noop, nil

	case ProviderAnthropic:
		c := anthropic.NewClient(cfg.APIKey, model, anthropic.Options{
			BaseURL: pick(cfg.BaseURL, chat.DefaultBaseURL, ""),
			Timeout: timeout,
		})
		return NewAnthropicAdapter(c, model), noop, nil

	case ProviderGemini:
		c, err := gemini.NewClient(ctx, cfg.APIKey, model)
		if err != nil {
			return nil, noop, err
		}
		return NewGeminiAdapter(c), c.Close, nil

	default:
		return nil, noop, eris.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// ModelName returns the model the configured provider will be asked for.
func ModelName(cfg config.LLMConfig) string {
	switch cfg.Provider {
	case ProviderOpenAI:
		return pick(cfg.Model, chat.DefaultModel, openAIModel)
	case ProviderAnthropic:
		return pick(cfg.Model, chat.DefaultModel, anthropic.DefaultModel)
	case ProviderGemini:
		return pick(cfg.Model, chat.DefaultModel, gemini.DefaultModel)
	default:
		return pick(cfg.Model, chat.DefaultModel, chat.DefaultModel)
	}
}

// pick returns v unless it is empty or the DeepSeek default carried over
// from the config defaults, in which case fallback is used.
func pick(v, carried, fallback string) string {
	if v == "" || v == carried {
		return fallback
	}
	return v
}

package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/newsdesk/internal/resilience"
	"github.com/sells-group/newsdesk/pkg/anthropic"
	"github.com/sells-group/newsdesk/pkg/chat"
	"github.com/sells-group/newsdesk/pkg/gemini"
)

// ChatAdapter serves Complete from an OpenAI-compatible chat client.
type ChatAdapter struct {
	client chat.Client
	model  string
}

// NewChatAdapter wraps a chat-completions client.
func NewChatAdapter(client chat.Client, model string) *ChatAdapter {
	return &ChatAdapter{client: client, model: model}
}

// Complete implements Client.
func (a *ChatAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	msgs := make([]chat.Message, 0, 2)
	if req.System != "" {
		msgs = append(msgs, chat.Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, chat.Message{Role: "user", Content: req.User})

	creq := chat.ChatCompletionRequest{
		Model:       a.model,
		Messages:    msgs,
		Temperature: chat.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		creq.MaxTokens = chat.Int(req.MaxTokens)
	}

	resp, err := a.client.ChatCompletion(ctx, creq)
	if err != nil {
		return nil, classify(err, "chat completion")
	}
	text, err := resp.Text()
	if err != nil {
		return nil, err
	}
	return &Response{
		Text:             text,
		PromptTokens:     int64(resp.Usage.PromptTokens),
		CompletionTokens: int64(resp.Usage.CompletionTokens),
	}, nil
}

// AnthropicAdapter serves Complete from the Messages API.
type AnthropicAdapter struct {
	client anthropic.Client
	model  string
}

// NewAnthropicAdapter wraps an Anthropic client.
func NewAnthropicAdapter(client anthropic.Client, model string) *AnthropicAdapter {
	return &AnthropicAdapter{client: client, model: model}
}

// Complete implements Client.
func (a *AnthropicAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temp := req.Temperature
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    []anthropic.Message{{Role: "user", Content: req.User}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, classify(err, "create message")
	}
	return &Response{
		Text:             resp.Text(),
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
	}, nil
}

// Generator is the subset of the Gemini client the adapter needs.
type Generator interface {
	Generate(ctx context.Context, req gemini.Request) (*gemini.Response, error)
}

// GeminiAdapter serves Complete from a Gemini model.
type GeminiAdapter struct {
	client Generator
}

// NewGeminiAdapter wraps a Gemini client.
func NewGeminiAdapter(client Generator) *GeminiAdapter {
	return &GeminiAdapter{client: client}
}

// Complete implements Client.
func (a *GeminiAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	resp, err := a.client.Generate(ctx, gemini.Request{
		System:      req.System,
		Prompt:      req.User,
		Temperature: float32(req.Temperature),
		MaxTokens:   int32(req.MaxTokens),
	})
	if err != nil {
		if status := gemini.StatusCode(err); status > 0 {
			return nil, resilience.HTTPStatusError(status, "gemini: "+err.Error())
		}
		return nil, classify(err, "generate content")
	}
	return &Response{
		Text:             resp.Text,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CandidatesTokens,
	}, nil
}

// classify maps provider errors onto the resilience taxonomy so retry and
// circuit decisions do not depend on the provider.
func classify(err error, op string) error {
	var chatErr *chat.APIError
	if errors.As(err, &chatErr) {
		return resilience.HTTPStatusError(chatErr.StatusCode, op+": "+truncateDetail(chatErr.Body))
	}
	var antErr *anthropic.APIError
	if errors.As(err, &antErr) {
		return resilience.HTTPStatusError(antErr.StatusCode, op+": "+truncateDetail(antErr.Message))
	}
	if errors.Is(err, context.Canceled) {
		return eris.Wrap(err, "llm: "+op)
	}
	return resilience.FromTransport(err, op)
}

func truncateDetail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

// Package gemini is a thin text-generation client on generative-ai-go.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

// Request is a single-turn generation request.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int32
}

// Response is the generated text and its token counts.
type Response struct {
	Text             string
	PromptTokens     int64
	CandidatesTokens int64
}

// Client generates text with a Gemini model.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client. extra options are passed to the
// underlying genai client (endpoint overrides, HTTP client).
func NewClient(ctx context.Context, apiKey, model string, extra ...option.ClientOption) (*Client, error) {
	opts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, extra...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{client: client, model: model}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Generate runs one prompt.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	m := c.client.GenerativeModel(c.model)
	if req.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	m.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(req.MaxTokens)
	}

	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}
	return fromResponse(resp)
}

func fromResponse(resp *genai.GenerateContentResponse) (*Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, eris.New("gemini: no candidates in response")
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return nil, eris.New("gemini: empty response")
	}

	out := &Response{Text: b.String()}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int64(resp.UsageMetadata.PromptTokenCount)
		out.CandidatesTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

// StatusCode returns the HTTP status carried by a Gemini API error, or 0.
func StatusCode(err error) int {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	return 0
}

// String renders a request for debug logging.
func (r Request) String() string {
	return fmt.Sprintf("gemini.Request{system=%d chars, prompt=%d chars, temperature=%.2f, max_tokens=%d}",
		len(r.System), len(r.Prompt), r.Temperature, r.MaxTokens)
}

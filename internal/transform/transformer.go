// Package transform rewrites extracted articles through a language model:
// a same-language paraphrase followed by a translation into Polish.
package transform

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/newsdesk/internal/llm"
)

var (
	// ErrUnconfigured is returned when no language model is available.
	ErrUnconfigured = eris.New("transform: language model not configured")
	// ErrEmptyResult is returned when a paraphrase yields no title or body.
	ErrEmptyResult = eris.New("transform: empty result")
)

// Result is a title/content pair produced by one stage.
type Result struct {
	Title   string
	Content string
}

// Translation is the output of the translate stage.
type Translation struct {
	Result
	Outcome ParseOutcome
}

// Transformer runs the paraphrase and translate stages.
type Transformer struct {
	client llm.Client
}

// New creates a Transformer. A nil client makes every call return
// ErrUnconfigured.
func New(client llm.Client) *Transformer {
	return &Transformer{client: client}
}

// Configured reports whether a model is available.
func (t *Transformer) Configured() bool {
	return t.client != nil
}

// Paraphrase rewrites title and content in English.
func (t *Transformer) Paraphrase(ctx context.Context, title, content string) (*Result, error) {
	if t.client == nil {
		return nil, ErrUnconfigured
	}

	resp, err := t.client.Complete(ctx, llm.Request{
		System:      paraphraseSystem,
		User:        paraphrasePrompt(title, content),
		Temperature: paraphraseTemperature,
		MaxTokens:   paraphraseMaxTokens,
	})
	if err != nil {
		return nil, eris.Wrap(err, "transform: paraphrase")
	}

	newTitle, newContent := parseParaphrase(resp.Text, title, clip(content))
	if strings.TrimSpace(newTitle) == "" || strings.TrimSpace(newContent) == "" {
		return nil, ErrEmptyResult
	}
	return &Result{Title: newTitle, Content: newContent}, nil
}

// Translate renders title and content in Polish. A response that cannot
// be parsed at all degrades to the input pair with Outcome Unrecoverable;
// only a failed call is an error.
func (t *Transformer) Translate(ctx context.Context, title, content string) (*Translation, error) {
	if t.client == nil {
		return nil, ErrUnconfigured
	}

	resp, err := t.client.Complete(ctx, llm.Request{
		System:      translateSystem,
		User:        translatePrompt(title, content),
		Temperature: translateTemperature,
		MaxTokens:   translateMaxTokens,
	})
	if err != nil {
		return nil, eris.Wrap(err, "transform: translate")
	}

	plTitle, plContent, outcome := parseTranslation(resp.Text)
	switch outcome {
	case Structured:
	case Recovered:
		zap.L().Warn("transform: translation recovered from unstructured response",
			zap.Int("response_len", len(resp.Text)),
		)
	case Unrecoverable:
		zap.L().Warn("transform: translation unparseable, keeping source text",
			zap.Int("response_len", len(resp.Text)),
		)
		plTitle, plContent = title, content
	}

	return &Translation{
		Result:  Result{Title: plTitle, Content: plContent},
		Outcome: outcome,
	}, nil
}

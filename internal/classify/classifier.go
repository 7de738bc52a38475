// Package classify assigns every article one category from the closed
// enumeration: keyword rules first, then an optional language-model
// fallback, then Other.
package classify

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/newsdesk/internal/llm"
	"github.com/sells-group/newsdesk/internal/model"
)

// Path records which rule produced a classification.
type Path string

const (
	PathGameKeyword     Path = "game_keyword"
	PathPriorityKeyword Path = "priority_keyword"
	PathKeyword         Path = "keyword"
	PathLLM             Path = "llm"
	PathDefault         Path = "default"
)

// falsePositiveMarkers suppress a Game keyword when they occur within
// contextWindow characters of it.
var falsePositiveMarkers = []string{"film", "movie", "serial", "show", "comic", "komiks"}

const contextWindow = 30

// Checked after Game, in this order.
var priorityOrder = []model.Category{model.CategoryMovie, model.CategoryTVShow, model.CategoryComic}

const (
	llmBodyRunes   = 1000
	llmTemperature = 0.3
	llmMaxTokens   = 50
)

// Result is a classification and the rule that produced it.
type Result struct {
	Category model.Category
	Path     Path
}

// Classifier categorises articles.
type Classifier struct {
	tax     Taxonomy
	llm     llm.Client
	timeout time.Duration
}

// New creates a Classifier. client may be nil, in which case unmatched
// articles go straight to Other.
func New(tax Taxonomy, client llm.Client, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Classifier{tax: tax, llm: client, timeout: timeout}
}

// Classify returns a member of the category enumeration. It never fails:
// fallback errors are logged and resolve to Other.
func (c *Classifier) Classify(ctx context.Context, title, body string) Result {
	text := strings.ToLower(title) + " " + strings.ToLower(body)

	if c.isGame(text) {
		return Result{Category: model.CategoryGame, Path: PathGameKeyword}
	}

	for _, cat := range priorityOrder {
		if containsAny(text, c.tax[cat]) {
			return Result{Category: cat, Path: PathPriorityKeyword}
		}
	}

	for _, cat := range model.AllCategories() {
		if cat == model.CategoryGame || isPriority(cat) {
			continue
		}
		if containsAny(text, c.tax[cat]) {
			return Result{Category: cat, Path: PathKeyword}
		}
	}

	if c.llm != nil {
		if cat, ok := c.askModel(ctx, title, body); ok {
			return Result{Category: cat, Path: PathLLM}
		}
	}

	return Result{Category: model.CategoryOther, Path: PathDefault}
}

// isGame reports whether any Game keyword occurs without a false-positive
// marker near its first occurrence.
func (c *Classifier) isGame(text string) bool {
	for _, kw := range c.tax[model.CategoryGame] {
		idx := strings.Index(text, kw)
		if idx < 0 {
			continue
		}
		if !hasMarker(window(text, idx, len(kw))) {
			return true
		}
	}
	return false
}

// window returns the text around text[idx:idx+n], extended by
// contextWindow characters on both sides.
func window(text string, idx, n int) string {
	start := idx
	for i := 0; i < contextWindow && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	end := idx + n
	for i := 0; i < contextWindow && end < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return text[start:end]
}

func hasMarker(s string) bool {
	for _, m := range falsePositiveMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func isPriority(cat model.Category) bool {
	for _, p := range priorityOrder {
		if p == cat {
			return true
		}
	}
	return false
}

func (c *Classifier) askModel(ctx context.Context, title, body string) (model.Category, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	names := make([]string, 0, 6)
	for _, cat := range model.AllCategories() {
		names = append(names, string(cat))
	}

	resp, err := c.llm.Complete(ctx, llm.Request{
		System: fmt.Sprintf("Classify the following article into exactly one of these categories: %s. "+
			"Answer with the category name only, nothing else.", strings.Join(names, ", ")),
		User:        fmt.Sprintf("Title: %s\n\n%s...", title, headRunes(body, llmBodyRunes)),
		Temperature: llmTemperature,
		MaxTokens:   llmMaxTokens,
	})
	if err != nil {
		zap.L().Warn("classify: llm fallback failed", zap.Error(err))
		return "", false
	}

	answer := strings.TrimSpace(resp.Text)
	cat, ok := model.ParseCategory(answer)
	if !ok {
		zap.L().Warn("classify: llm returned unknown category", zap.String("answer", answer))
		return "", false
	}
	return cat, true
}

func headRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/sells-group/newsdesk/internal/classify"
	"github.com/sells-group/newsdesk/internal/config"
	"github.com/sells-group/newsdesk/internal/fetcher"
	"github.com/sells-group/newsdesk/internal/model"
	"github.com/sells-group/newsdesk/internal/store"
	"github.com/sells-group/newsdesk/internal/transform"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Exists(ctx context.Context, url string) (bool, error) {
	args := m.Called(ctx, url)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) Insert(ctx context.Context, a *model.Article) (int64, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) RecentArticles(ctx context.Context, limit int, category model.Category) ([]model.Article, error) {
	args := m.Called(ctx, limit, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Article), args.Error(1)
}

func (m *mockStore) ArticleByURL(ctx context.Context, url string) (*model.Article, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Article), args.Error(1)
}

func (m *mockStore) ArticleBySlug(ctx context.Context, slug string) (*model.Article, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Article), args.Error(1)
}

func (m *mockStore) ArticlesPage(ctx context.Context, excludeID int64, offset, limit int) ([]model.Article, error) {
	args := m.Called(ctx, excludeID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Article), args.Error(1)
}

func (m *mockStore) CreateRun(ctx context.Context) (*model.Run, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, stats *model.RunStats) error {
	args := m.Called(ctx, runID, status, stats)
	return args.Error(0)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- Fetcher Mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (*fetcher.Page, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fetcher.Page), args.Error(1)
}

// --- Classifier Mock ---

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, title, body string) classify.Result {
	args := m.Called(ctx, title, body)
	return args.Get(0).(classify.Result)
}

// --- Transformer Mock ---

type mockTransformer struct {
	mock.Mock
}

func (m *mockTransformer) Paraphrase(ctx context.Context, title, content string) (*transform.Result, error) {
	args := m.Called(ctx, title, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transform.Result), args.Error(1)
}

func (m *mockTransformer) Translate(ctx context.Context, title, content string) (*transform.Translation, error) {
	args := m.Called(ctx, title, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transform.Translation), args.Error(1)
}

// --- helpers ---

func testConfig(sources ...model.Source) *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			MaxLinksPerSource: 5,
			Workers:           1,
			MaxTitleChars:     10000,
			MaxContentChars:   100000,
			MaxURLChars:       1000,
		},
		Sources: sources,
	}
}

func htmlPage(url, body string) *fetcher.Page {
	return &fetcher.Page{URL: url, FinalURL: url, StatusCode: 200, ContentType: "text/html", Body: []byte(body)}
}

func articleHTML(title, body string) string {
	return `<html><head><title>` + title + `</title></head><body><article>` +
		`<h1 class="entry-title">` + title + `</h1>` +
		`<div class="entry-content"><p>` + body + `</p></div>` +
		`</article></body></html>`
}

func nopLogger() *zap.Logger {
	return zap.NewNop()
}

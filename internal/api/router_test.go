package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/newsdesk/internal/model"
	"github.com/sells-group/newsdesk/internal/pipeline"
	"github.com/sells-group/newsdesk/internal/store"
)

type mockReader struct {
	mock.Mock
}

func (m *mockReader) RecentArticles(ctx context.Context, limit int, category model.Category) ([]model.Article, error) {
	args := m.Called(ctx, limit, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Article), args.Error(1)
}

func (m *mockReader) ArticleByURL(ctx context.Context, url string) (*model.Article, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Article), args.Error(1)
}

func (m *mockReader) ArticleBySlug(ctx context.Context, slug string) (*model.Article, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Article), args.Error(1)
}

func (m *mockReader) ArticlesPage(ctx context.Context, excludeID int64, offset, limit int) ([]model.Article, error) {
	args := m.Called(ctx, excludeID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Article), args.Error(1)
}

func (m *mockReader) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockReader) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type stubIngester struct {
	err     error
	started chan struct{}
}

func (s *stubIngester) Start(_ context.Context, done func(*model.RunStats)) error {
	if s.err != nil {
		return s.err
	}
	go func() {
		done(&model.RunStats{RunID: "run-1"})
		close(s.started)
	}()
	return nil
}

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body["error"]
}

var sample = model.Article{
	ID:                7,
	URL:               "https://www.gamespot.com/articles/zelda/",
	Source:            "GameSpot",
	Title:             "Zelda sequel confirmed",
	Content:           "Body",
	TitleTranslated:   "Potwierdzono kontynuację Zeldy",
	ContentTranslated: "Treść",
	Category:          model.CategoryGame,
	Slug:              "zelda-sequel-confirmed",
	SlugTranslated:    "potwierdzono-kontynuacje-zeldy",
	PublishedAt:       time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
}

func TestHealth(t *testing.T) {
	st := &mockReader{}
	st.On("Ping", mock.Anything).Return(nil).Once()
	st.On("Ping", mock.Anything).Return(errors.New("refused")).Once()
	h := NewRouter(context.Background(), st, nil, nil)

	rr := serve(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = serve(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRecentArticles(t *testing.T) {
	st := &mockReader{}
	st.On("RecentArticles", mock.Anything, 0, model.Category("")).Return([]model.Article{sample}, nil)
	st.On("RecentArticles", mock.Anything, 3, model.CategoryTVShow).Return([]model.Article{}, nil)
	h := NewRouter(context.Background(), st, nil, nil)

	rr := serve(t, h, http.MethodGet, "/articles")
	require.Equal(t, http.StatusOK, rr.Code)
	var got []model.Article
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, sample.Slug, got[0].Slug)
	assert.Contains(t, rr.Body.String(), `"title_pl":"Potwierdzono kontynuację Zeldy"`)

	rr = serve(t, h, http.MethodGet, "/articles?limit=3&category=TV+Show")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
	st.AssertExpectations(t)
}

func TestRecentArticles_BadInput(t *testing.T) {
	h := NewRouter(context.Background(), &mockReader{}, nil, nil)

	rr := serve(t, h, http.MethodGet, "/articles?category=game")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "unknown category", decodeError(t, rr))

	rr = serve(t, h, http.MethodGet, "/articles?limit=-1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid limit", decodeError(t, rr))
}

func TestRecentArticles_StoreError(t *testing.T) {
	st := &mockReader{}
	st.On("RecentArticles", mock.Anything, 0, model.Category("")).Return(nil, errors.New("conn reset"))
	h := NewRouter(context.Background(), st, nil, nil)

	rr := serve(t, h, http.MethodGet, "/articles")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal error", decodeError(t, rr))
}

func TestArticlesPage(t *testing.T) {
	st := &mockReader{}
	st.On("ArticlesPage", mock.Anything, int64(7), 12, 6).Return([]model.Article{}, nil)
	h := NewRouter(context.Background(), st, nil, nil)

	rr := serve(t, h, http.MethodGet, "/articles/page?exclude=7&offset=12&limit=6")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
	st.AssertExpectations(t)
}

func TestArticleByURL(t *testing.T) {
	st := &mockReader{}
	st.On("ArticleByURL", mock.Anything, sample.URL).Return(&sample, nil)
	st.On("ArticleByURL", mock.Anything, "https://example.com/missing").Return(nil, nil)
	h := NewRouter(context.Background(), st, nil, nil)

	rr := serve(t, h, http.MethodGet, "/articles/by-url?url="+sample.URL)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"slug_en":"zelda-sequel-confirmed"`)

	rr = serve(t, h, http.MethodGet, "/articles/by-url?url=https://example.com/missing")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rr.Body.String())

	rr = serve(t, h, http.MethodGet, "/articles/by-url")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestArticleBySlug(t *testing.T) {
	st := &mockReader{}
	st.On("ArticleBySlug", mock.Anything, "potwierdzono-kontynuacje-zeldy").Return(&sample, nil)
	st.On("ArticleBySlug", mock.Anything, "nope").Return(nil, nil)
	h := NewRouter(context.Background(), st, nil, nil)

	rr := serve(t, h, http.MethodGet, "/articles/potwierdzono-kontynuacje-zeldy")
	assert.Equal(t, http.StatusOK, rr.Code)
	var got model.Article
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, int64(7), got.ID)

	rr = serve(t, h, http.MethodGet, "/articles/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not found", decodeError(t, rr))
}

func TestListRuns(t *testing.T) {
	st := &mockReader{}
	st.On("ListRuns", mock.Anything, store.RunFilter{Status: model.RunStatusFailed, Limit: 5}).
		Return([]model.Run{{ID: "run-1", Status: model.RunStatusFailed}}, nil)
	h := NewRouter(context.Background(), st, nil, nil)

	rr := serve(t, h, http.MethodGet, "/runs?status=failed&limit=5")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"id":"run-1"`)
}

func TestStartIngest(t *testing.T) {
	ing := &stubIngester{started: make(chan struct{})}
	h := NewRouter(context.Background(), &mockReader{}, ing, nil)

	rr := serve(t, h, http.MethodPost, "/ingest")
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.JSONEq(t, `{"status":"accepted"}`, rr.Body.String())

	select {
	case <-ing.started:
	case <-time.After(time.Second):
		t.Fatal("done callback not invoked")
	}
}

func TestStartIngest_Conflict(t *testing.T) {
	h := NewRouter(context.Background(), &mockReader{}, &stubIngester{err: pipeline.ErrRunInProgress}, nil)

	rr := serve(t, h, http.MethodPost, "/ingest")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "run already in progress", decodeError(t, rr))
}

func TestStartIngest_Unavailable(t *testing.T) {
	h := NewRouter(context.Background(), &mockReader{}, nil, nil)

	rr := serve(t, h, http.MethodPost, "/ingest")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestUnknownRoute(t *testing.T) {
	h := NewRouter(context.Background(), &mockReader{}, nil, nil)

	rr := serve(t, h, http.MethodGet, "/nowhere")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rr.Body.String())

	rr = serve(t, h, http.MethodDelete, "/ingest")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCORS(t *testing.T) {
	st := &mockReader{}
	st.On("Ping", mock.Anything).Return(nil)
	h := NewRouter(context.Background(), st, nil, []string{"https://newsdesk.example"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://newsdesk.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://newsdesk.example", rr.Header().Get("Access-Control-Allow-Origin"))
}

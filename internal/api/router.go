// Package api serves stored articles and run history to the presentation
// layer and accepts ingestion triggers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/newsdesk/internal/model"
	"github.com/sells-group/newsdesk/internal/pipeline"
	"github.com/sells-group/newsdesk/internal/store"
)

// Reader is the read side of the store used by the API.
type Reader interface {
	RecentArticles(ctx context.Context, limit int, category model.Category) ([]model.Article, error)
	ArticleByURL(ctx context.Context, url string) (*model.Article, error)
	ArticleBySlug(ctx context.Context, slug string) (*model.Article, error)
	ArticlesPage(ctx context.Context, excludeID int64, offset, limit int) ([]model.Article, error)
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
	Ping(ctx context.Context) error
}

// Ingester starts a background ingestion run.
type Ingester interface {
	Start(ctx context.Context, done func(*model.RunStats)) error
}

type server struct {
	store  Reader
	ingest Ingester
	// runCtx outlives requests; triggered runs are bound to it.
	runCtx context.Context
}

// NewRouter builds the HTTP handler. ing may be nil, in which case
// POST /ingest answers 503. Runs started through the API stop when runCtx
// is done.
func NewRouter(runCtx context.Context, st Reader, ing Ingester, corsOrigins []string) http.Handler {
	s := &server{store: st, ingest: ing, runCtx: runCtx}

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/articles", func(r chi.Router) {
		r.Get("/", s.recentArticles)
		r.Get("/page", s.articlesPage)
		r.Get("/by-url", s.articleByURL)
		r.Get("/{slug}", s.articleBySlug)
	})
	r.Get("/runs", s.listRuns)
	r.Post("/ingest", s.startIngest)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		zap.L().Warn("api: store ping failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) recentArticles(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit")
	if !ok {
		return
	}
	var category model.Category
	if raw := r.URL.Query().Get("category"); raw != "" {
		c, valid := model.ParseCategory(raw)
		if !valid {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		category = c
	}

	articles, err := s.store.RecentArticles(r.Context(), limit, category)
	if err != nil {
		internalError(w, "recent articles", err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *server) articlesPage(w http.ResponseWriter, r *http.Request) {
	offset, ok := intParam(w, r, "offset")
	if !ok {
		return
	}
	limit, ok := intParam(w, r, "limit")
	if !ok {
		return
	}
	exclude, ok := intParam(w, r, "exclude")
	if !ok {
		return
	}

	articles, err := s.store.ArticlesPage(r.Context(), int64(exclude), offset, limit)
	if err != nil {
		internalError(w, "articles page", err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *server) articleByURL(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("url")
	if u == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	a, err := s.store.ArticleByURL(r.Context(), u)
	s.writeArticle(w, a, err, "article by url")
}

func (s *server) articleBySlug(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.ArticleBySlug(r.Context(), chi.URLParam(r, "slug"))
	s.writeArticle(w, a, err, "article by slug")
}

func (s *server) writeArticle(w http.ResponseWriter, a *model.Article, err error, op string) {
	switch {
	case err != nil:
		internalError(w, op, err)
	case a == nil:
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeJSON(w, http.StatusOK, a)
	}
}

func (s *server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit")
	if !ok {
		return
	}
	runs, err := s.store.ListRuns(r.Context(), store.RunFilter{
		Status: model.RunStatus(r.URL.Query().Get("status")),
		Limit:  limit,
	})
	if err != nil {
		internalError(w, "list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *server) startIngest(w http.ResponseWriter, _ *http.Request) {
	if s.ingest == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion unavailable")
		return
	}

	err := s.ingest.Start(s.runCtx, func(stats *model.RunStats) {
		zap.L().Info("api: triggered run finished",
			zap.String("run_id", stats.RunID),
			zap.Int("saved", stats.Saved),
		)
	})
	if errors.Is(err, pipeline.ErrRunInProgress) {
		writeError(w, http.StatusConflict, "run already in progress")
		return
	}
	if err != nil {
		internalError(w, "start ingest", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// intParam reads a non-negative integer query parameter. A missing value
// is 0; an invalid one writes a 400 and returns false.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}

func internalError(w http.ResponseWriter, op string, err error) {
	zap.L().Error("api: "+op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

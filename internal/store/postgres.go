package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/newsdesk/internal/db"
	"github.com/sells-group/newsdesk/internal/model"
	"github.com/sells-group/newsdesk/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	q       queries
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const pgUniqueViolation = "23505"

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresStore(pool, pool.Close), nil
}

func newPostgresStore(pool db.Pool, closeFn func()) *PostgresStore {
	return &PostgresStore{pool: pool, q: newQueries(sq.Dollar), closeFn: closeFn}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS articles (
	id           BIGSERIAL PRIMARY KEY,
	url          TEXT NOT NULL UNIQUE,
	source       TEXT NOT NULL,
	title        TEXT NOT NULL,
	content      TEXT NOT NULL,
	title_pl     TEXT NOT NULL,
	content_pl   TEXT NOT NULL,
	category     TEXT NOT NULL CHECK (category IN ('Game', 'Movie', 'TV Show', 'Comic', 'Tech', 'Other')),
	slug_en      TEXT NOT NULL,
	slug_pl      TEXT NOT NULL,
	published_at TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC);
CREATE INDEX IF NOT EXISTS idx_articles_slug_en ON articles(slug_en);
CREATE INDEX IF NOT EXISTS idx_articles_slug_pl ON articles(slug_pl);
CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	stats       JSONB,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_ingest_runs_started_at ON ingest_runs(started_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM articles WHERE url = $1)`, url,
	).Scan(&exists)
	if err != nil {
		return false, classifyPgError(err, "exists")
	}
	return exists, nil
}

func (s *PostgresStore) Insert(ctx context.Context, a *model.Article) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO articles (url, source, title, content, title_pl, content_pl, category, slug_en, slug_pl, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		a.URL, a.Source, a.Title, a.Content, a.TitleTranslated, a.ContentTranslated,
		string(a.Category), a.Slug, a.SlugTranslated, a.PublishedAt.UTC(), now, now,
	).Scan(&id)
	if err != nil {
		return 0, classifyPgError(err, "insert article")
	}
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return id, nil
}

func (s *PostgresStore) RecentArticles(ctx context.Context, limit int, category model.Category) ([]model.Article, error) {
	query, args, err := s.q.recent(limit, category)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build recent articles")
	}
	return s.listArticles(ctx, "recent articles", query, args)
}

func (s *PostgresStore) ArticlesPage(ctx context.Context, excludeID int64, offset, limit int) ([]model.Article, error) {
	query, args, err := s.q.page(excludeID, offset, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build articles page")
	}
	return s.listArticles(ctx, "articles page", query, args)
}

func (s *PostgresStore) ArticleByURL(ctx context.Context, url string) (*model.Article, error) {
	query, args, err := s.q.byURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build article by url")
	}
	return s.getArticle(ctx, "article by url", query, args)
}

func (s *PostgresStore) ArticleBySlug(ctx context.Context, slug string) (*model.Article, error) {
	query, args, err := s.q.bySlug(slug)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build article by slug")
	}
	return s.getArticle(ctx, "article by slug", query, args)
}

func (s *PostgresStore) getArticle(ctx context.Context, op, query string, args []any) (*model.Article, error) {
	var a model.Article
	if err := scanArticle(s.pool.QueryRow(ctx, query, args...), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: %s", op)
	}
	return &a, nil
}

func (s *PostgresStore) listArticles(ctx context.Context, op, query string, args []any) ([]model.Article, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", op)
	}
	defer rows.Close()

	articles := []model.Article{}
	for rows.Next() {
		var a model.Article
		if err := scanArticle(rows, &a); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s", op)
		}
		articles = append(articles, a)
	}
	return articles, eris.Wrapf(rows.Err(), "postgres: %s iterate", op)
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingest_runs (id, status, started_at) VALUES ($1, $2, $3)`,
		id, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &model.Run{ID: id, Status: model.RunStatusRunning, StartedAt: now}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, stats *model.RunStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE ingest_runs SET status = $1, stats = $2, finished_at = $3 WHERE id = $4`,
		string(status), statsJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query, args, err := s.q.runs(filter)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build list runs")
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		var r model.Run
		var status string
		var statsJSON []byte
		if err := rows.Scan(&r.ID, &status, &statsJSON, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = model.RunStatus(status)
		if len(statsJSON) > 0 {
			r.Stats = &model.RunStats{}
			if err := json.Unmarshal(statsJSON, r.Stats); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal stats")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// classifyPgError tags a driver error for the orchestrator. Unique
// violations become StoreConstraint; the server's code, detail and hint
// are kept in Detail.
func classifyPgError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		detail := fmt.Sprintf("%s: code=%s detail=%q hint=%q constraint=%s",
			op, pgErr.Code, pgErr.Detail, pgErr.Hint, pgErr.ConstraintName)
		if pgErr.Code == pgUniqueViolation {
			return resilience.StoreConstraintError(err, detail)
		}
		return resilience.StoreError(err, detail)
	}
	return resilience.StoreError(err, op)
}

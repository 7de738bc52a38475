package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sells-group/newsdesk/internal/model"
	"github.com/sells-group/newsdesk/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
	q  queries
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, q: newQueries(sq.Question)}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS articles (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	url          TEXT NOT NULL UNIQUE,
	source       TEXT NOT NULL,
	title        TEXT NOT NULL,
	content      TEXT NOT NULL,
	title_pl     TEXT NOT NULL,
	content_pl   TEXT NOT NULL,
	category     TEXT NOT NULL CHECK (category IN ('Game', 'Movie', 'TV Show', 'Comic', 'Tech', 'Other')),
	slug_en      TEXT NOT NULL,
	slug_pl      TEXT NOT NULL,
	published_at DATETIME NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC);
CREATE INDEX IF NOT EXISTS idx_articles_slug_en ON articles(slug_en);
CREATE INDEX IF NOT EXISTS idx_articles_slug_pl ON articles(slug_pl);
CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	stats       TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_ingest_runs_started_at ON ingest_runs(started_at DESC);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Exists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM articles WHERE url = ?)`, url,
	).Scan(&exists)
	if err != nil {
		return false, classifySQLiteError(err, "exists")
	}
	return exists, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, a *model.Article) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO articles (url, source, title, content, title_pl, content_pl, category, slug_en, slug_pl, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.URL, a.Source, a.Title, a.Content, a.TitleTranslated, a.ContentTranslated,
		string(a.Category), a.Slug, a.SlugTranslated, a.PublishedAt.UTC(), now, now,
	)
	if err != nil {
		return 0, classifySQLiteError(err, "insert article")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, resilience.StoreError(err, "insert article: last insert id")
	}
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return id, nil
}

func (s *SQLiteStore) RecentArticles(ctx context.Context, limit int, category model.Category) ([]model.Article, error) {
	query, args, err := s.q.recent(limit, category)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build recent articles")
	}
	return s.listArticles(ctx, "recent articles", query, args)
}

func (s *SQLiteStore) ArticlesPage(ctx context.Context, excludeID int64, offset, limit int) ([]model.Article, error) {
	query, args, err := s.q.page(excludeID, offset, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build articles page")
	}
	return s.listArticles(ctx, "articles page", query, args)
}

func (s *SQLiteStore) ArticleByURL(ctx context.Context, url string) (*model.Article, error) {
	query, args, err := s.q.byURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build article by url")
	}
	return s.getArticle(ctx, "article by url", query, args)
}

func (s *SQLiteStore) ArticleBySlug(ctx context.Context, slug string) (*model.Article, error) {
	query, args, err := s.q.bySlug(slug)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build article by slug")
	}
	return s.getArticle(ctx, "article by slug", query, args)
}

func (s *SQLiteStore) getArticle(ctx context.Context, op, query string, args []any) (*model.Article, error) {
	var a model.Article
	if err := scanArticle(s.db.QueryRowContext(ctx, query, args...), &a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: %s", op)
	}
	return &a, nil
}

func (s *SQLiteStore) listArticles(ctx context.Context, op, query string, args []any) ([]model.Article, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: %s", op)
	}
	defer rows.Close() //nolint:errcheck

	articles := []model.Article{}
	for rows.Next() {
		var a model.Article
		if err := scanArticle(rows, &a); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", op)
		}
		articles = append(articles, a)
	}
	return articles, eris.Wrapf(rows.Err(), "sqlite: %s iterate", op)
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, status, started_at) VALUES (?, ?, ?)`,
		id, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &model.Run{ID: id, Status: model.RunStatusRunning, StartedAt: now}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, stats *model.RunStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE ingest_runs SET status = ?, stats = ?, finished_at = ? WHERE id = ?`,
		string(status), string(statsJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query, args, err := s.q.runs(filter)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build list runs")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	runs := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var status string
	var statsJSON sql.NullString
	var finished sql.NullTime

	if err := row.Scan(&r.ID, &status, &statsJSON, &r.StartedAt, &finished); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = model.RunStatus(status)
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	if statsJSON.Valid && statsJSON.String != "" && statsJSON.String != "null" {
		r.Stats = &model.RunStats{}
		if err := json.Unmarshal([]byte(statsJSON.String), r.Stats); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal stats")
		}
	}
	return &r, nil
}

// classifySQLiteError tags a driver error for the orchestrator.
func classifySQLiteError(err error, op string) error {
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) && sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return resilience.StoreConstraintError(err, op+": "+sqErr.Error())
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return resilience.StoreConstraintError(err, op)
	}
	return resilience.StoreError(err, op)
}

package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/newsdesk/internal/config"
	"github.com/sells-group/newsdesk/internal/model"
)

// RunFilter specifies criteria for listing ingestion runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// Store is the persistence gateway for articles and ingestion runs.
//
// Lookups that find nothing return (nil, nil) or false, never an error.
// Insert reports a duplicate url as a resilience error of kind
// StoreConstraint; every other failure is kind StoreOther.
type Store interface {
	// Articles
	Exists(ctx context.Context, url string) (bool, error)
	Insert(ctx context.Context, a *model.Article) (int64, error)
	RecentArticles(ctx context.Context, limit int, category model.Category) ([]model.Article, error)
	ArticleByURL(ctx context.Context, url string) (*model.Article, error)
	ArticleBySlug(ctx context.Context, slug string) (*model.Article, error)
	ArticlesPage(ctx context.Context, excludeID int64, offset, limit int) ([]model.Article, error)

	// Runs
	CreateRun(ctx context.Context) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, stats *model.RunStats) error
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		st, err := NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
		if err != nil {
			return nil, err
		}
		return st, nil
	case "sqlite":
		st, err := NewSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
	defaultPageLimit   = 6
	defaultRunsLimit   = 20
)

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

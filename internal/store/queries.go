package store

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/sells-group/newsdesk/internal/model"
)

var articleColumns = []string{
	"id", "url", "source", "title", "content", "title_pl", "content_pl",
	"category", "slug_en", "slug_pl", "published_at", "created_at", "updated_at",
}

// queries builds the read statements shared by both drivers; only the
// placeholder format differs.
type queries struct {
	b sq.StatementBuilderType
}

func newQueries(ph sq.PlaceholderFormat) queries {
	return queries{b: sq.StatementBuilder.PlaceholderFormat(ph)}
}

func (q queries) articles() sq.SelectBuilder {
	return q.b.Select(articleColumns...).From("articles")
}

func (q queries) recent(limit int, category model.Category) (string, []any, error) {
	sel := q.articles()
	if category != "" {
		sel = sel.Where(sq.Eq{"category": string(category)})
	}
	return sel.
		OrderBy("published_at DESC", "id DESC").
		Limit(uint64(clampLimit(limit, defaultRecentLimit, maxRecentLimit))).
		ToSql()
}

func (q queries) byURL(url string) (string, []any, error) {
	return q.articles().Where(sq.Eq{"url": url}).Limit(1).ToSql()
}

// bySlug matches either language's slug. Slugs are not unique, so the
// most recently published article wins.
func (q queries) bySlug(slug string) (string, []any, error) {
	return q.articles().
		Where(sq.Or{sq.Eq{"slug_en": slug}, sq.Eq{"slug_pl": slug}}).
		OrderBy("published_at DESC", "id DESC").
		Limit(1).
		ToSql()
}

func (q queries) page(excludeID int64, offset, limit int) (string, []any, error) {
	sel := q.articles()
	if excludeID > 0 {
		sel = sel.Where(sq.NotEq{"id": excludeID})
	}
	if offset < 0 {
		offset = 0
	}
	return sel.
		OrderBy("published_at DESC", "id DESC").
		Limit(uint64(clampLimit(limit, defaultPageLimit, maxRecentLimit))).
		Offset(uint64(offset)).
		ToSql()
}

func (q queries) runs(filter RunFilter) (string, []any, error) {
	sel := q.b.Select("id", "status", "stats", "started_at", "finished_at").From("ingest_runs")
	if filter.Status != "" {
		sel = sel.Where(sq.Eq{"status": string(filter.Status)})
	}
	return sel.
		OrderBy("started_at DESC").
		Limit(uint64(clampLimit(filter.Limit, defaultRunsLimit, maxRecentLimit))).
		ToSql()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanArticle(row scannable, a *model.Article) error {
	var category string
	if err := row.Scan(
		&a.ID, &a.URL, &a.Source, &a.Title, &a.Content, &a.TitleTranslated, &a.ContentTranslated,
		&category, &a.Slug, &a.SlugTranslated, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return err
	}
	a.Category = model.Category(category)
	return nil
}

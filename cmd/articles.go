package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/newsdesk/internal/model"
	"github.com/sells-group/newsdesk/internal/store"
)

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "Print stored articles as JSON",
	Long:  "Prints the most recent articles, or a single article selected by --slug or --url.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("read"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		slug, _ := cmd.Flags().GetString("slug")
		url, _ := cmd.Flags().GetString("url")
		limit, _ := cmd.Flags().GetInt("limit")
		category, _ := cmd.Flags().GetString("category")

		v, err := queryArticles(ctx, st, articleQuery{
			Slug:     slug,
			URL:      url,
			Limit:    limit,
			Category: category,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), v)
	},
}

type articleQuery struct {
	Slug     string
	URL      string
	Limit    int
	Category string
}

// queryArticles resolves the flags to a single article or a recent list.
func queryArticles(ctx context.Context, st store.Store, q articleQuery) (any, error) {
	var (
		a   *model.Article
		err error
	)
	switch {
	case q.Slug != "":
		a, err = st.ArticleBySlug(ctx, q.Slug)
	case q.URL != "":
		a, err = st.ArticleByURL(ctx, q.URL)
	default:
		var category model.Category
		if q.Category != "" {
			c, ok := model.ParseCategory(q.Category)
			if !ok {
				return nil, eris.Errorf("unknown category %q", q.Category)
			}
			category = c
		}
		articles, err := st.RecentArticles(ctx, q.Limit, category)
		if err != nil {
			return nil, eris.Wrap(err, "articles")
		}
		return articles, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "articles")
	}
	if a == nil {
		return nil, eris.New("article not found")
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	articlesCmd.Flags().String("slug", "", "look up one article by English or Polish slug")
	articlesCmd.Flags().String("url", "", "look up one article by source URL")
	articlesCmd.Flags().Int("limit", 20, "number of recent articles")
	articlesCmd.Flags().String("category", "", "filter recent articles by category (Game, Movie, TV Show, Comic, Tech, Other)")
	rootCmd.AddCommand(articlesCmd)
}

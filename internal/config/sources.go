package config

import "github.com/sells-group/newsdesk/internal/model"

// DefaultUserAgent is a current desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// DefaultSources returns the built-in source list used when the config file
// does not declare any sources.
func DefaultSources() []model.Source {
	return []model.Source{
		{
			Name:         "GameSpot",
			Kind:         model.SourceKindHTML,
			ListingURL:   "https://www.gamespot.com/news/",
			BaseURL:      "https://www.gamespot.com",
			LinkSelector: `a.card-item__link, article.card-item a[href*="/articles/"]`,
		},
		{
			Name:         "PC Gamer",
			Kind:         model.SourceKindHTML,
			ListingURL:   "https://www.pcgamer.com/news/",
			BaseURL:      "https://www.pcgamer.com",
			LinkSelector: `a.article-link, article.article-feature a.article-link`,
		},
		{
			Name:          "IGN",
			Kind:          model.SourceKindHTML,
			ListingURL:    "https://www.ign.com/news",
			BaseURL:       "https://www.ign.com",
			LinkSelector:  `a[class*="item-body"], a[class*="content-item"], article div > a[href*="/articles/"]`,
			AbsoluteLinks: true,
		},
		{
			Name:          "Polygon",
			Kind:          model.SourceKindHTML,
			ListingURL:    "https://www.polygon.com/news",
			BaseURL:       "https://www.polygon.com",
			LinkSelector:  `div.c-compact-entry-box__body a[data-analytics-link="article"], a.c-entry-box--compact__image-wrapper`,
			AbsoluteLinks: true,
		},
		{
			Name:         "Rock Paper Shotgun",
			Kind:         model.SourceKindHTML,
			ListingURL:   "https://www.rockpapershotgun.com/news",
			BaseURL:      "https://www.rockpapershotgun.com",
			LinkSelector: `a.thumbnail_wrapper`,
		},
		{
			Name:         "Eurogamer",
			Kind:         model.SourceKindHTML,
			ListingURL:   "https://www.eurogamer.net/news",
			BaseURL:      "https://www.eurogamer.net",
			LinkSelector: `a.block, li.mb-16 a[href*="/news/"]`,
		},
	}
}

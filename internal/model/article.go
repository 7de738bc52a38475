package model

import "time"

// Category is the closed set of article categories.
type Category string

const (
	CategoryGame   Category = "Game"
	CategoryMovie  Category = "Movie"
	CategoryTVShow Category = "TV Show"
	CategoryComic  Category = "Comic"
	CategoryTech   Category = "Tech"
	CategoryOther  Category = "Other"
)

// AllCategories returns every category in enumeration order.
func AllCategories() []Category {
	return []Category{
		CategoryGame,
		CategoryMovie,
		CategoryTVShow,
		CategoryComic,
		CategoryTech,
		CategoryOther,
	}
}

// ParseCategory returns the category whose name is exactly s.
// Matching is case-sensitive.
func ParseCategory(s string) (Category, bool) {
	for _, c := range AllCategories() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Valid reports whether c is a member of the enumeration.
func (c Category) Valid() bool {
	_, ok := ParseCategory(string(c))
	return ok
}

// Article is a persisted, bilingual news article. URL is its identity.
type Article struct {
	ID                int64     `json:"id"`
	URL               string    `json:"url"`
	Source            string    `json:"source"`
	Title             string    `json:"title"`
	Content           string    `json:"content"`
	TitleTranslated   string    `json:"title_pl"`
	ContentTranslated string    `json:"content_pl"`
	Category          Category  `json:"category"`
	Slug              string    `json:"slug_en"`
	SlugTranslated    string    `json:"slug_pl"`
	PublishedAt       time.Time `json:"published_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Bilingual reports whether both halves of the translated pair are present.
func (a *Article) Bilingual() bool {
	return a.Title != "" && a.Content != "" && a.TitleTranslated != "" && a.ContentTranslated != ""
}

// Package fetcher downloads listing and article pages with browser-like
// headers, per-host pacing and bot-block detection. It never retries.
package fetcher

import "context"

// Page is a fetched HTML document.
type Page struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher fetches a single page. Failures are *resilience.Error values
// tagged Network, Timeout or HTTPStatus.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

package extract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"

	"github.com/sells-group/newsdesk/internal/model"
)

// Candidates extracts article links from a listing body according to the
// source kind. Links are canonical, unique and in listing order.
func Candidates(body []byte, src model.Source) ([]model.Candidate, error) {
	switch src.EffectiveKind() {
	case model.SourceKindRSS:
		return FeedLinks(body, src)
	case model.SourceKindHTML:
		return ListingLinks(body, src)
	default:
		return nil, eris.Errorf("extract: unknown source kind %q", src.Kind)
	}
}

// ListingLinks returns the href of every element matching the source's
// link selector.
func ListingLinks(body []byte, src model.Source) ([]model.Candidate, error) {
	doc, err := Parse(body)
	if err != nil {
		return nil, err
	}
	base, err := resolveBase(src)
	if err != nil {
		return nil, err
	}

	var out []model.Candidate
	seen := make(map[string]bool)
	doc.Find(src.LinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		link, ok := Canonicalize(href, base)
		if !ok || seen[link] {
			return
		}
		seen[link] = true
		out = append(out, model.Candidate{URL: link})
	})
	return out, nil
}

// FeedLinks parses an RSS or Atom listing and carries each item's
// published time as a date hint.
func FeedLinks(body []byte, src model.Source) ([]model.Candidate, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse feed")
	}
	base, err := resolveBase(src)
	if err != nil {
		return nil, err
	}

	var out []model.Candidate
	seen := make(map[string]bool)
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link, ok := Canonicalize(item.Link, base)
		if !ok || seen[link] {
			continue
		}
		seen[link] = true

		c := model.Candidate{URL: link}
		switch {
		case item.PublishedParsed != nil:
			t := item.PublishedParsed.UTC()
			c.PublishedHint = &t
		case item.UpdatedParsed != nil:
			t := item.UpdatedParsed.UTC()
			c.PublishedHint = &t
		}
		out = append(out, c)
	}
	return out, nil
}

// resolveBase picks the URL that relative links resolve against: the
// source base URL for sources flagged absolute_links, otherwise the
// listing page itself.
func resolveBase(src model.Source) (*url.URL, error) {
	raw := src.ListingURL
	if src.AbsoluteLinks && src.BaseURL != "" {
		raw = src.BaseURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: parse base url for %s", src.Name)
	}
	return u, nil
}

// Canonicalize resolves href against base and normalises it into an
// article identity: http(s) only, lowercase scheme and host, no fragment.
func Canonicalize(href string, base *url.URL) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u := ref
	if !ref.IsAbs() {
		if base == nil {
			return "", false
		}
		u = base.ResolveReference(ref)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return "", false
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}

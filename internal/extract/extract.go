// Package extract turns fetched markup into article fields and listing
// candidates. Every extraction walks an ordered selector chain and keeps
// the first non-empty result.
package extract

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// Selector is one step of a fallback chain. When Attr is set the named
// attribute is read instead of the element text; FallbackAttr is consulted
// when the element text is empty.
type Selector struct {
	CSS          string
	Attr         string
	FallbackAttr string
}

// TitleChain is tried in order for the article title.
var TitleChain = []Selector{
	{CSS: "h1.entry-title"},
	{CSS: "h1.title"},
	{CSS: "h1.post-title"},
	{CSS: "h1.article-title"},
	{CSS: "header h1"},
	{CSS: `meta[property="og:title"]`, Attr: "content"},
	{CSS: "title"},
}

// BodyChain is tried in order for the article body.
var BodyChain = []Selector{
	{CSS: "div.article-content"},
	{CSS: "div.entry-content"},
	{CSS: "div.post-content"},
	{CSS: "div.story-content"},
	{CSS: "article .content"},
	{CSS: "div.content"},
	{CSS: "article"},
	{CSS: "section.content-main"},
}

// DateChain is tried in order for the publish date.
var DateChain = []Selector{
	{CSS: `meta[property="article:published_time"]`, Attr: "content"},
	{CSS: `time[itemprop="datePublished"]`, FallbackAttr: "datetime"},
	{CSS: "time[datetime]", FallbackAttr: "datetime"},
	{CSS: "span.date", FallbackAttr: "datetime"},
	{CSS: "div.published-date", FallbackAttr: "datetime"},
}

// Descendants dropped from body text.
const noiseSelector = "script, style, noscript, nav, footer, aside, form, figure, iframe"

// Block elements whose text becomes one paragraph.
const blockSelector = "p, h2, h3, h4, h5, h6, li, blockquote, pre"

var spaceRun = regexp.MustCompile(`\s+`)

// Fields are the values extracted from an article page.
type Fields struct {
	Title   string
	Content string

	// PublishedAt is nil when no date selector yielded a parsable value.
	PublishedAt *time.Time
}

// Empty reports whether the page is missing a title or a body.
func (f *Fields) Empty() bool {
	return f.Title == "" || f.Content == ""
}

// Parse parses raw markup into a document.
func Parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse html")
	}
	return doc, nil
}

// Article extracts title, body and publish date from an article page.
func Article(body []byte) (*Fields, error) {
	doc, err := Parse(body)
	if err != nil {
		return nil, err
	}

	title, _ := FirstMatch(doc.Selection, TitleChain)
	content, _ := firstMatchWith(doc.Selection, BodyChain, bodyText)

	return &Fields{
		Title:       title,
		Content:     content,
		PublishedAt: PublishedAt(doc.Selection),
	}, nil
}

// FirstMatch returns the first non-empty trimmed result of chain and the
// index of the selector that produced it, or ("", -1). Selectors after the
// first success are not evaluated.
func FirstMatch(root *goquery.Selection, chain []Selector) (string, int) {
	return firstMatchWith(root, chain, inlineText)
}

func firstMatchWith(root *goquery.Selection, chain []Selector, text func(*goquery.Selection) string) (string, int) {
	for i, sel := range chain {
		if v := selectorValue(root, sel, text); v != "" {
			return v, i
		}
	}
	return "", -1
}

// selectorValue reads the first element matching sel.
func selectorValue(root *goquery.Selection, sel Selector, text func(*goquery.Selection) string) string {
	node := root.Find(sel.CSS).First()
	if node.Length() == 0 {
		return ""
	}
	if sel.Attr != "" {
		v, _ := node.Attr(sel.Attr)
		return collapse(v)
	}
	if v := text(node); v != "" {
		return v
	}
	if sel.FallbackAttr != "" {
		v, _ := node.Attr(sel.FallbackAttr)
		return collapse(v)
	}
	return ""
}

// PublishedAt walks DateChain and returns the first value that parses.
// For element selectors the text is tried before the datetime attribute.
func PublishedAt(root *goquery.Selection) *time.Time {
	for _, sel := range DateChain {
		node := root.Find(sel.CSS).First()
		if node.Length() == 0 {
			continue
		}
		var candidates []string
		if sel.Attr != "" {
			v, _ := node.Attr(sel.Attr)
			candidates = append(candidates, v)
		} else {
			candidates = append(candidates, inlineText(node))
			if sel.FallbackAttr != "" {
				v, _ := node.Attr(sel.FallbackAttr)
				candidates = append(candidates, v)
			}
		}
		for _, c := range candidates {
			if t, ok := ParseDate(c); ok {
				return &t
			}
		}
	}
	return nil
}

func inlineText(s *goquery.Selection) string {
	return collapse(s.Text())
}

// bodyText renders a content container as paragraphs separated by blank
// lines, ignoring navigation, scripts and embedded media.
func bodyText(s *goquery.Selection) string {
	c := s.Clone()
	c.Find(noiseSelector).Remove()

	var paras []string
	c.Find(blockSelector).Each(func(_ int, b *goquery.Selection) {
		// Only leaf blocks, so nested lists and quotes are not doubled.
		if b.Find(blockSelector).Length() > 0 {
			return
		}
		if t := collapse(b.Text()); t != "" {
			paras = append(paras, t)
		}
	})
	if len(paras) > 0 {
		return strings.Join(paras, "\n\n")
	}
	return collapse(c.Text())
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// Truncate cuts s to at most max runes. A non-positive max disables it.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

package transform

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ParseOutcome records how a model response was turned into fields.
type ParseOutcome int

const (
	// Unrecoverable means no usable fields were found.
	Unrecoverable ParseOutcome = iota
	// Recovered means fields were pulled out by label after the strict
	// parse failed.
	Recovered
	// Structured means the response matched the requested shape.
	Structured
)

func (o ParseOutcome) String() string {
	switch o {
	case Structured:
		return "structured"
	case Recovered:
		return "recovered"
	case Unrecoverable:
		return "unrecoverable"
	default:
		return "unknown"
	}
}

var (
	titleLine = regexp.MustCompile(`Title: (.*)`)
	codeFence = regexp.MustCompile("^```(?:json)?\\s*([\\s\\S]*?)\\s*```$")

	jsonTitle    = regexp.MustCompile(`(?i)"title_pl":\s*"([^"]+)"`)
	labelTitle   = regexp.MustCompile(`(?i)Tytuł:\s*([^\n]+)`)
	jsonContent  = regexp.MustCompile(`(?i)"content_pl":\s*"`)
	labelContent = regexp.MustCompile(`(?i)Treść:\s*([\s\S]*)`)
)

// parseParaphrase splits a paraphrase response into title and content.
// Without a "Title:" line the whole response is content and fallbackTitle
// is kept. input is the text that was sent, used to spot responses whose
// body came back wrapped in extra lines.
func parseParaphrase(resp, fallbackTitle, input string) (title, content string) {
	title = fallbackTitle
	content = resp
	if m := titleLine.FindStringSubmatch(resp); m != nil {
		title = strings.TrimSpace(m[1])
		content = strings.TrimSpace(strings.Replace(resp, m[0], "", 1))
	}

	probe := prefix(strings.TrimSpace(input), 50)
	if probe != "" && !strings.Contains(content, probe) && utf8.RuneCountInString(resp) > 100 {
		content = splitBody(resp)
	}
	return title, content
}

// splitBody drops the heading block of a response: everything up to the
// first blank line.
func splitBody(resp string) string {
	lines := strings.Split(resp, "\n")
	if len(lines) > 2 && strings.TrimSpace(lines[1]) == "" {
		return strings.TrimSpace(strings.Join(lines[2:], "\n"))
	}
	idx := strings.Index(resp, "\n\n")
	if idx < 0 {
		return resp
	}
	body := strings.TrimSpace(resp[idx+2:])
	if utf8.RuneCountInString(body) < 50 {
		return resp
	}
	return body
}

type translation struct {
	TitlePL   string `json:"title_pl"`
	ContentPL string `json:"content_pl"`
}

// parseTranslation reads the translated pair from a response: strict JSON
// first, then label extraction.
func parseTranslation(resp string) (title, content string, outcome ParseOutcome) {
	cleaned := codeFence.ReplaceAllString(strings.TrimSpace(resp), "$1")

	var t translation
	if err := json.Unmarshal([]byte(cleaned), &t); err == nil {
		if strings.TrimSpace(t.TitlePL) != "" && strings.TrimSpace(t.ContentPL) != "" {
			return strings.TrimSpace(t.TitlePL), strings.TrimSpace(t.ContentPL), Structured
		}
	}

	title = recoverTitle(cleaned)
	content = recoverContent(cleaned)
	if title == "" || content == "" {
		return "", "", Unrecoverable
	}
	return title, content, Recovered
}

func recoverTitle(s string) string {
	if m := jsonTitle.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := labelTitle.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func recoverContent(s string) string {
	if loc := jsonContent.FindStringIndex(s); loc != nil {
		if v, ok := quotedValue(s[loc[1]:]); ok {
			return strings.TrimSpace(unescape(v))
		}
	}
	if m := labelContent.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// quotedValue returns the text up to the first quote that is followed by
// another key or by the closing brace of the object.
func quotedValue(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '"' || (i > 0 && s[i-1] == '\\') {
			continue
		}
		rest := strings.TrimLeft(s[i+1:], " \t\r\n")
		if strings.TrimSpace(rest) == "}" {
			return s[:i], true
		}
		if strings.HasPrefix(rest, ",") && strings.HasPrefix(strings.TrimLeft(rest[1:], " \t\r\n"), `"`) {
			return s[:i], true
		}
	}
	return "", false
}

var unescaper = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\\`, `\`)

func unescape(s string) string {
	return unescaper.Replace(s)
}

func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

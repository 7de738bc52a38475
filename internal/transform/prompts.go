package transform

import (
	"fmt"
	"unicode/utf8"
)

const (
	maxInputChars = 12000

	paraphraseSystem      = "You are a helpful assistant."
	paraphraseTemperature = 0.7
	paraphraseMaxTokens   = 2048

	translateSystem = "Jesteś doświadczonym tłumaczem i redaktorem serwisu o grach, filmach i technologii. " +
		"Tłumaczysz teksty na język polski i dbasz o ich czytelny układ."
	translateTemperature = 0.7
	translateMaxTokens   = 2000
)

const paraphraseTemplate = `You are an editor for an entertainment and gaming news site.
Rewrite the article below so it reads as an original, engaging piece.

Title rules:
- Write a new title with different wording and structure from the original.
- Keep it under 80 characters.
- Put it on the first line, in the form "Title: <new title>".

Content rules:
- Keep every significant fact from the original.
- Use short paragraphs of two to four sentences.
- Use subheadings wrapped in asterisks (for example *Release Date*) when the article covers several topics.
- Use hyphens for lists and add a few fitting emojis.
- Finish with a short conclusion.
- Leave out reader comments, links to other articles and page furniture.

Original Title: %s

Original Content: %s
`

const translateTemplate = `Przetłumacz na język polski i sformatuj poniższy artykuł. Zachowaj jego sens i styl.

Tytuł: %s

Treść: %s

Odpowiedz wyłącznie obiektem JSON:
{
  "title_pl": "przetłumaczony tytuł",
  "content_pl": "przetłumaczona i sformatowana treść"
}`

func paraphrasePrompt(title, content string) string {
	return fmt.Sprintf(paraphraseTemplate, title, clip(content))
}

func translatePrompt(title, content string) string {
	return fmt.Sprintf(translateTemplate, title, clip(content))
}

// clip bounds prompt input to maxInputChars runes, marking the cut with "...".
func clip(s string) string {
	if utf8.RuneCountInString(s) <= maxInputChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxInputChars]) + "..."
}

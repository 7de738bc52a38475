package classify

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/newsdesk/internal/model"
)

//go:embed keywords.yaml
var defaultKeywords []byte

// Taxonomy maps each category to its keyword list. Keywords are lowercase.
type Taxonomy map[model.Category][]string

// DefaultTaxonomy returns the embedded keyword taxonomy.
func DefaultTaxonomy() (Taxonomy, error) {
	return ParseTaxonomy(defaultKeywords)
}

// LoadTaxonomy reads a taxonomy from a YAML file. An empty path returns
// the embedded default.
func LoadTaxonomy(path string) (Taxonomy, error) {
	if path == "" {
		return DefaultTaxonomy()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: read keywords %s", path)
	}
	return ParseTaxonomy(data)
}

// ParseTaxonomy decodes a YAML mapping of category name to keywords.
// Unknown category names are rejected.
func ParseTaxonomy(data []byte) (Taxonomy, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "classify: parse keywords")
	}

	tax := make(Taxonomy, len(raw))
	for name, words := range raw {
		cat, ok := model.ParseCategory(name)
		if !ok {
			return nil, eris.Errorf("classify: unknown category %q in keywords", name)
		}
		list := make([]string, 0, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				list = append(list, w)
			}
		}
		tax[cat] = list
	}
	return tax, nil
}

package search

import (
	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

// Entities are the structured hints pulled out of a free-text query.
type Entities struct {
	Ecosystems  []string `json:"ecosystems,omitempty"`
	Identifiers []string `json:"identifiers,omitempty"`
}

// ecosystemAliases maps query tokens to canonical ecosystem tags. The
// tags themselves are free-form strings agreed with the ingestion side;
// this table only canonicalizes common spellings.
var ecosystemAliases = map[string]string{
	"npm":        "npm",
	"node":       "npm",
	"nodejs":     "npm",
	"javascript": "npm",
	"pypi":       "PyPI",
	"pip":        "PyPI",
	"python":     "PyPI",
	"maven":      "Maven",
	"java":       "Maven",
	"go":         "Go",
	"golang":     "Go",
	"debian":     "Debian",
	"crates.io":  "crates.io",
	"cargo":      "crates.io",
	"rust":       "crates.io",
	"rubygems":   "RubyGems",
	"gem":        "RubyGems",
	"ruby":       "RubyGems",
	"nuget":      "NuGet",
	"packagist":  "Packagist",
	"composer":   "Packagist",
	"php":        "Packagist",
}

// ExtractEntities pulls ecosystem mentions and vulnerability identifiers
// out of a query. Rule-based: token lookup for ecosystems, the
// identifier grammar for ids.
func ExtractEntities(query string) Entities {
	var ents Entities
	seenEco := make(map[string]bool)
	seenID := make(map[string]bool)

	for _, tok := range queryTokens(query) {
		if eco, ok := ecosystemAliases[tok]; ok && !seenEco[eco] {
			seenEco[eco] = true
			ents.Ecosystems = append(ents.Ecosystems, eco)
			continue
		}
		if err := types.ValidateVulnID(tok); err == nil {
			id := types.NormalizeVulnID(tok)
			if !seenID[id] {
				seenID[id] = true
				ents.Identifiers = append(ents.Identifiers, id)
			}
		}
	}
	return ents
}

// Empty reports whether nothing was extracted.
func (e Entities) Empty() bool {
	return len(e.Ecosystems) == 0 && len(e.Identifiers) == 0
}

package types

import (
	"fmt"
	"regexp"
	"strings"
)

// Vulnerability identifiers come in two shapes: year-numbered IDs like
// CVE-2024-3094 or DSA-5678-1 style advisories (PREFIX-YYYY-DIGITS), and
// grouped alphanumeric IDs like GHSA-jfh8-c2jp-5v3q.
var (
	yearIDPattern    = regexp.MustCompile(`^[A-Za-z]+-\d{4}-\d+$`)
	groupedIDPattern = regexp.MustCompile(`^[A-Za-z]+(-[0-9A-Za-z]{4}){3}$`)
)

// ValidateVulnID checks an identifier against the accepted grammar.
// Returns ErrInvalidIdentifier (wrapped with the offending input) when the
// identifier matches neither form.
func ValidateVulnID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: empty identifier", ErrInvalidIdentifier)
	}
	if yearIDPattern.MatchString(id) || groupedIDPattern.MatchString(id) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
}

// NormalizeVulnID upper-cases an identifier for canonical-ID comparison.
// Aliases are matched verbatim; only the canonical id field is
// conventionally upper-case.
func NormalizeVulnID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

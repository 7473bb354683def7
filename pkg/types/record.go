package types

import "time"

// Severity is a single severity entry on a vulnerability record.
// Type follows OSV conventions (CVSS_V3, CVSS_V2, ...) and Score is the
// raw score string as published (e.g. "9.8" or a CVSS vector).
type Severity struct {
	Type  string `json:"type"`
	Score string `json:"score"`
}

// Package identifies an affected package within an ecosystem.
type Package struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
	PURL      string `json:"purl,omitempty"`
}

// RangeEvent is a single event in a version range. Exactly one field is set.
type RangeEvent struct {
	Introduced string `json:"introduced,omitempty"`
	Fixed      string `json:"fixed,omitempty"`
	Limit      string `json:"limit,omitempty"`
}

// VersionRange describes a range of affected versions.
type VersionRange struct {
	Type   string       `json:"type"`
	Repo   string       `json:"repo,omitempty"`
	Events []RangeEvent `json:"events"`
}

// AffectedPackage describes one package affected by a vulnerability.
type AffectedPackage struct {
	Package  Package        `json:"package"`
	Ranges   []VersionRange `json:"ranges,omitempty"`
	Versions []string       `json:"versions,omitempty"`
}

// Reference is an external link attached to a vulnerability record.
type Reference struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// VulnerabilityRecord is the canonical unit of retrieval. Records are
// created by the ingestion pipeline, embedded and upserted into the
// indices, and read-only thereafter. ID is stable; re-ingesting the same
// ID overwrites the existing record.
type VulnerabilityRecord struct {
	ID        string    `json:"id"`
	Aliases   []string  `json:"aliases,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Details   string    `json:"details,omitempty"`
	Content   string    `json:"content"`
	Ecosystem string    `json:"ecosystem"`
	Published time.Time `json:"published,omitempty"`
	Modified  time.Time `json:"modified,omitempty"`

	Severity   []Severity        `json:"severity,omitempty"`
	Affected   []AffectedPackage `json:"affected_packages,omitempty"`
	References []Reference       `json:"references,omitempty"`

	// Enrichment signals attached by the collector when external feeds
	// (EPSS, CISA KEV, exploit databases) cover this record. Zero values
	// mean the feed had no data, not a measured zero.
	Source           string  `json:"source,omitempty"`
	EPSSScore        float64 `json:"epss_score,omitempty"`
	KEV              bool    `json:"kev,omitempty"`
	ExploitAvailable bool    `json:"exploit_available,omitempty"`
}

// HasAlias reports whether the record carries the given identifier as an
// alias. Matching is exact; callers normalize case before lookup.
func (r *VulnerabilityRecord) HasAlias(id string) bool {
	for _, a := range r.Aliases {
		if a == id {
			return true
		}
	}
	return false
}

// PackageNames returns the names of all affected packages.
func (r *VulnerabilityRecord) PackageNames() []string {
	names := make([]string, 0, len(r.Affected))
	for _, aff := range r.Affected {
		if aff.Package.Name != "" {
			names = append(names, aff.Package.Name)
		}
	}
	return names
}

// SearchResult pairs a record with the scores that ranked it. Depending on
// which retrieval paths contributed, SimilarityScore (vector cosine) and
// BM25Score may each be zero; CombinedScore is the fused ranking score.
type SearchResult struct {
	Record VulnerabilityRecord `json:"record"`

	SimilarityScore float64 `json:"similarity_score"`
	BM25Score       float64 `json:"bm25_score"`
	CombinedScore   float64 `json:"combined_score"`
	RerankScore     float64 `json:"rerank_score,omitempty"`
}

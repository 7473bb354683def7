package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

// osvDocument mirrors the OSV schema fields this pipeline consumes.
// https://ossf.github.io/osv-schema/
type osvDocument struct {
	ID        string   `json:"id"`
	Aliases   []string `json:"aliases"`
	Summary   string   `json:"summary"`
	Details   string   `json:"details"`
	Published string   `json:"published"`
	Modified  string   `json:"modified"`
	Withdrawn string   `json:"withdrawn"`

	Severity []struct {
		Type  string `json:"type"`
		Score string `json:"score"`
	} `json:"severity"`

	Affected []struct {
		Package struct {
			Ecosystem string `json:"ecosystem"`
			Name      string `json:"name"`
			PURL      string `json:"purl"`
		} `json:"package"`
		Ranges []struct {
			Type   string `json:"type"`
			Repo   string `json:"repo"`
			Events []struct {
				Introduced string `json:"introduced"`
				Fixed      string `json:"fixed"`
				Limit      string `json:"limit"`
			} `json:"events"`
		} `json:"ranges"`
		Versions []string `json:"versions"`
	} `json:"affected"`

	References []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"references"`
}

// parseOSV decodes one OSV JSON document.
func parseOSV(data []byte) (*osvDocument, error) {
	var doc osvDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed OSV document: %w", err)
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("OSV document missing id")
	}
	return &doc, nil
}

// toRecord converts an OSV document to the canonical record shape.
// ecosystem is the feed the document came from; the document's own
// package ecosystem wins when present.
func (doc *osvDocument) toRecord(ecosystem string) *types.VulnerabilityRecord {
	rec := &types.VulnerabilityRecord{
		ID:        doc.ID,
		Aliases:   doc.Aliases,
		Summary:   doc.Summary,
		Details:   doc.Details,
		Ecosystem: ecosystem,
		Published: parseOSVTime(doc.Published),
		Modified:  parseOSVTime(doc.Modified),
	}

	for _, sev := range doc.Severity {
		rec.Severity = append(rec.Severity, types.Severity{Type: sev.Type, Score: sev.Score})
	}

	for _, aff := range doc.Affected {
		pkg := types.AffectedPackage{
			Package: types.Package{
				Name:      aff.Package.Name,
				Ecosystem: aff.Package.Ecosystem,
				PURL:      aff.Package.PURL,
			},
			Versions: aff.Versions,
		}
		if rec.Ecosystem == "" && aff.Package.Ecosystem != "" {
			rec.Ecosystem = aff.Package.Ecosystem
		}
		for _, rng := range aff.Ranges {
			vr := types.VersionRange{Type: rng.Type, Repo: rng.Repo}
			for _, ev := range rng.Events {
				vr.Events = append(vr.Events, types.RangeEvent{
					Introduced: ev.Introduced,
					Fixed:      ev.Fixed,
					Limit:      ev.Limit,
				})
			}
			pkg.Ranges = append(pkg.Ranges, vr)
		}
		rec.Affected = append(rec.Affected, pkg)
	}

	for _, ref := range doc.References {
		rec.References = append(rec.References, types.Reference{Type: ref.Type, URL: ref.URL})
	}

	rec.Content = BuildContent(rec)
	return rec
}

// BuildContent assembles the semantic text that gets embedded: summary,
// details, and affected package names. Identifiers and severity scores
// are deliberately excluded; they carry no semantic signal and would
// pollute similarity.
func BuildContent(rec *types.VulnerabilityRecord) string {
	var parts []string
	if rec.Summary != "" {
		parts = append(parts, "Summary: "+rec.Summary)
	}
	if rec.Details != "" {
		parts = append(parts, "Details: "+rec.Details)
	}
	if names := rec.PackageNames(); len(names) > 0 {
		parts = append(parts, "Affects: "+strings.Join(names, ", "))
	}
	return strings.Join(parts, "\n\n")
}

func parseOSVTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

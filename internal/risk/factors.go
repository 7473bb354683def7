package risk

import (
	"strconv"
	"strings"
	"time"

	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

// AssetInfo is the deployment context for a vulnerability, supplied by
// the caller. Absent context means a normal-criticality, non-exposed
// asset.
type AssetInfo struct {
	Criticality     float64 `json:"criticality" yaml:"criticality"`
	InternetExposed bool    `json:"internet_exposed" yaml:"internet_exposed"`
}

// kevSource marks records that came in through the CISA KEV feed.
const kevSource = "CISA_KEV"

// ExtractFactors derives scorable factors from a record and optional
// asset context.
func ExtractFactors(rec *types.VulnerabilityRecord, asset *AssetInfo) Factors {
	f := Factors{
		CVSSScore:          extractCVSS(rec.Severity),
		EPSSScore:          rec.EPSSScore,
		KEVFlag:            rec.KEV || rec.Source == kevSource,
		AssetCriticality:   1.0,
		ExploitAvailable:   rec.ExploitAvailable,
		PatchAvailable:     patchAvailable(rec.Affected),
		DaysSincePublished: daysSince(rec.Published),
	}
	if asset != nil {
		if asset.Criticality > 0 {
			f.AssetCriticality = asset.Criticality
		}
		f.InternetExposure = asset.InternetExposed
	}
	return f
}

// extractCVSS returns the first parseable CVSS score, preferring v3 over
// v2. Unparseable scores count as absent, not as errors.
func extractCVSS(severities []types.Severity) float64 {
	for _, wanted := range []string{"CVSS_V3", "CVSS_V2"} {
		for _, sev := range severities {
			if sev.Type != wanted {
				continue
			}
			if score, ok := parseCVSSScore(sev.Score); ok {
				return score
			}
		}
	}
	return 0.0
}

// parseCVSSScore handles both plain numeric scores ("9.8") and CVSS
// vector strings, which are not numeric and count as absent.
func parseCVSSScore(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil || score < 0 || score > 10 {
		return 0, false
	}
	return score, true
}

// patchAvailable reports whether a fix exists. Records that declare
// affected ranges but list no fixed event have no patch; records without
// range data default to available.
func patchAvailable(affected []types.AffectedPackage) bool {
	sawRanges := false
	for _, pkg := range affected {
		for _, rng := range pkg.Ranges {
			sawRanges = true
			for _, ev := range rng.Events {
				if ev.Fixed != "" {
					return true
				}
			}
		}
	}
	return !sawRanges
}

func daysSince(published time.Time) int {
	if published.IsZero() {
		return 0
	}
	days := int(time.Since(published).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

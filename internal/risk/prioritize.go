package risk

import (
	"sort"

	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

// ScoredVulnerability pairs a record with its computed risk score.
type ScoredVulnerability struct {
	Record types.VulnerabilityRecord `json:"record"`
	Score  Score                     `json:"risk_score"`
}

// ScoreVulnerability extracts factors from a record and scores them.
func (s *Scorer) ScoreVulnerability(rec *types.VulnerabilityRecord, asset *AssetInfo) Score {
	return s.Score(ExtractFactors(rec, asset))
}

// Prioritize scores every record and ranks them by overall score,
// highest first. The sort is stable: ties retain input order. Asset
// context is keyed by normalized id so GHSA/PYSEC identifiers with
// lowercase groups still match; missing entries mean default context.
func (s *Scorer) Prioritize(records []types.VulnerabilityRecord, assetContext map[string]*AssetInfo) []ScoredVulnerability {
	scored := make([]ScoredVulnerability, 0, len(records))
	for _, rec := range records {
		var asset *AssetInfo
		if assetContext != nil {
			asset = assetContext[types.NormalizeVulnID(rec.ID)]
		}
		scored = append(scored, ScoredVulnerability{
			Record: rec,
			Score:  s.ScoreVulnerability(&rec, asset),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score.OverallScore > scored[j].Score.OverallScore
	})
	return scored
}

// Summary describes the risk distribution of a scored set.
type Summary struct {
	Total             int           `json:"total_vulnerabilities"`
	CountsByLevel     map[Level]int `json:"risk_distribution"`
	AverageScore      float64       `json:"average_risk_score"`
	AverageConfidence float64       `json:"average_confidence"`
}

// Summarize aggregates a scored set into level counts and averages.
func Summarize(scored []ScoredVulnerability) Summary {
	summary := Summary{
		Total: len(scored),
		CountsByLevel: map[Level]int{
			LevelCritical: 0,
			LevelHigh:     0,
			LevelMedium:   0,
			LevelLow:      0,
		},
	}
	for _, sv := range scored {
		summary.CountsByLevel[sv.Score.RiskLevel]++
		summary.AverageScore += sv.Score.OverallScore
		summary.AverageConfidence += sv.Score.Confidence
	}
	if summary.Total > 0 {
		summary.AverageScore /= float64(summary.Total)
		summary.AverageConfidence /= float64(summary.Total)
	}
	return summary
}

package risk

// Factors are the raw inputs to a risk score, computed per
// (vulnerability, optional asset) pair. Ephemeral; never persisted.
type Factors struct {
	CVSSScore          float64 // [0,10]
	EPSSScore          float64 // [0,1]
	KEVFlag            bool
	AssetCriticality   float64 // 1.0 normal, 2.0 high, 3.0 critical
	InternetExposure   bool
	ExploitAvailable   bool
	PatchAvailable     bool // default true
	DaysSincePublished int
}

// Level is an ordinal risk band.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Factor weights. They sum to 1.0; preserve that invariant when tuning.
const (
	weightCVSS     = 0.25
	weightEPSS     = 0.20
	weightKEV      = 0.15
	weightAsset    = 0.15
	weightExposure = 0.10
	weightExploit  = 0.10
	weightPatch    = 0.03
	weightTime     = 0.02
)

// Level thresholds, inclusive on the lower bound of each band.
const (
	thresholdCritical = 0.8
	thresholdHigh     = 0.6
	thresholdMedium   = 0.4
)

// ageCapFraction limits how much of its slot the age factor can fill:
// a year-old issue contributes at half weight, never full. Tunable.
const ageCapFraction = 0.5

// Score is the scored output: the weighted sum, its per-factor
// contributions, the risk band, and a confidence reflecting how much of
// the input carried genuinely observed data.
type Score struct {
	OverallScore float64 `json:"overall_score"`

	CVSSContribution     float64 `json:"cvss_contribution"`
	EPSSContribution     float64 `json:"epss_contribution"`
	KEVContribution      float64 `json:"kev_contribution"`
	AssetContribution    float64 `json:"asset_contribution"`
	ExposureContribution float64 `json:"exposure_contribution"`
	ExploitContribution  float64 `json:"exploit_contribution"`
	PatchContribution    float64 `json:"patch_contribution"`
	TimeContribution     float64 `json:"time_contribution"`

	RiskLevel  Level   `json:"risk_level"`
	Confidence float64 `json:"confidence"`
}

// Scorer computes risk scores. Stateless and safe to share.
type Scorer struct{}

// NewScorer creates a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes the weighted risk score for a factor set. Deterministic
// and pure; for well-formed inputs the overall score lands in [0,1].
func (s *Scorer) Score(f Factors) Score {
	cvss := clamp01(f.CVSSScore / 10.0)
	epss := clamp01(f.EPSSScore)
	kev := boolScore(f.KEVFlag)
	asset := clamp01(f.AssetCriticality / 3.0)
	exposure := boolScore(f.InternetExposure)
	exploit := boolScore(f.ExploitAvailable)

	// Missing patch raises risk; an available one contributes nothing.
	patch := 0.0
	if !f.PatchAvailable {
		patch = 1.0
	}

	age := clamp01(float64(f.DaysSincePublished)/365.0) * ageCapFraction

	score := Score{
		CVSSContribution:     weightCVSS * cvss,
		EPSSContribution:     weightEPSS * epss,
		KEVContribution:      weightKEV * kev,
		AssetContribution:    weightAsset * asset,
		ExposureContribution: weightExposure * exposure,
		ExploitContribution:  weightExploit * exploit,
		PatchContribution:    weightPatch * patch,
		TimeContribution:     weightTime * age,
	}
	score.OverallScore = score.CVSSContribution + score.EPSSContribution +
		score.KEVContribution + score.AssetContribution +
		score.ExposureContribution + score.ExploitContribution +
		score.PatchContribution + score.TimeContribution
	score.RiskLevel = levelFor(score.OverallScore)
	score.Confidence = confidence(f)
	return score
}

func levelFor(score float64) Level {
	switch {
	case score >= thresholdCritical:
		return LevelCritical
	case score >= thresholdHigh:
		return LevelHigh
	case score >= thresholdMedium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// confidence is the fraction of factors carrying genuinely observed
// data. The boolean and defaulted factors always count as observed;
// CVSS and EPSS count only when nonzero, which conflates a true zero
// score with missing data. Inherited ambiguity, kept as-is.
func confidence(f Factors) float64 {
	observed := 6.0
	if f.CVSSScore > 0 {
		observed++
	}
	if f.EPSSScore > 0 {
		observed++
	}
	return observed / 8.0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func boolScore(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

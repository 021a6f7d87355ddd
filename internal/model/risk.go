package model

// RiskDimension is a life area the risk engine scores.
type RiskDimension string

const (
	RiskBurnout   RiskDimension = "burnout"
	RiskInjury    RiskDimension = "injury"
	RiskIsolation RiskDimension = "isolation"
	RiskFinancial RiskDimension = "financial"
)

// RiskDimensions lists every dimension in snapshot order.
var RiskDimensions = []RiskDimension{RiskBurnout, RiskInjury, RiskIsolation, RiskFinancial}

// Valid reports whether d is a known dimension.
func (d RiskDimension) Valid() bool {
	switch d {
	case RiskBurnout, RiskInjury, RiskIsolation, RiskFinancial:
		return true
	}
	return false
}

// RiskLevel is the tier a risk score falls into.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// LevelFor maps a score in [0,100] to its tier: above 70 is high, above 45
// is medium, anything else low.
func LevelFor(risk float64) RiskLevel {
	switch {
	case risk > 70:
		return RiskHigh
	case risk > 45:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskFactor is one weighted contribution to a risk score. Negative impact
// is protective.
type RiskFactor struct {
	Name    string  `json:"name"`
	Impact  float64 `json:"impact"`
	Details string  `json:"details"`
}

// RiskAssessment is the scored state of one dimension over a lookback window.
type RiskAssessment struct {
	Dimension       RiskDimension `json:"dimension"`
	Days            int           `json:"days"`
	Risk            float64       `json:"risk"`
	Level           RiskLevel     `json:"level"`
	Factors         []RiskFactor  `json:"factors"`
	Recommendations []string      `json:"recommendations"`
}

// RiskSnapshot is one user's daily scores across all dimensions.
type RiskSnapshot struct {
	Date          string  `json:"date"`
	BurnoutRisk   float64 `json:"burnout_risk"`
	InjuryRisk    float64 `json:"injury_risk"`
	IsolationRisk float64 `json:"isolation_risk"`
	FinancialRisk float64 `json:"financial_risk"`
}

// Score returns the snapshot value for a dimension.
func (s RiskSnapshot) Score(d RiskDimension) float64 {
	switch d {
	case RiskBurnout:
		return s.BurnoutRisk
	case RiskInjury:
		return s.InjuryRisk
	case RiskIsolation:
		return s.IsolationRisk
	case RiskFinancial:
		return s.FinancialRisk
	}
	return 0
}

// Set stores a dimension's score on the snapshot.
func (s *RiskSnapshot) Set(d RiskDimension, v float64) {
	switch d {
	case RiskBurnout:
		s.BurnoutRisk = v
	case RiskInjury:
		s.InjuryRisk = v
	case RiskIsolation:
		s.IsolationRisk = v
	case RiskFinancial:
		s.FinancialRisk = v
	}
}

// RiskPoint is one dated score in a risk history series.
type RiskPoint struct {
	Date string  `json:"date"`
	Risk float64 `json:"risk"`
}

// RiskHistory is a per-dimension series of daily snapshot scores.
type RiskHistory struct {
	Days   int                           `json:"days"`
	Series map[RiskDimension][]RiskPoint `json:"series"`
}

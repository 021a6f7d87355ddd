package risk

import (
	"math"
	"slices"
	"strings"

	"github.com/lifemosaic/negotiator/internal/model"
)

// Signals are the raw measurements collected from a user's events for one
// dimension, keyed by signal name.
type Signals map[string]float64

// Factor is one named, weighted contribution to a dimension's score.
// Signal maps the collected signals to a raw value (usually a count, an
// indicator or a per-day mean) and a human-readable detail; the factor's
// impact is Weight × raw. A negative weight marks a protective factor.
type Factor struct {
	Name   string
	Weight float64
	Signal func(s Signals) (raw float64, details string)
	// Advice is recommended when the factor raises the score.
	Advice string
}

// Policy scores one dimension.
type Policy struct {
	Dimension   model.RiskDimension
	DefaultDays int
	MaxDays     int
	// Types restricts the events read; nil reads every type.
	Types []model.EventType
	// Collect derives signals from the current window's events and the
	// equally long window before it.
	Collect func(w Window) Signals
	Factors []Factor
	// TierAdvice is recommended first, by level.
	TierAdvice map[model.RiskLevel][]string
}

// Evaluate scores signals under the policy. Zero-impact factors are dropped;
// the rest are ordered by descending |impact| with ties broken by name. The
// score is the impact sum clamped to [0, 100].
func (p Policy) Evaluate(s Signals, days int) model.RiskAssessment {
	var (
		factors []model.RiskFactor
		advice  = map[string]string{}
		total   float64
	)
	for _, f := range p.Factors {
		raw, details := f.Signal(s)
		impact := round2(f.Weight * raw)
		if impact == 0 {
			continue
		}
		factors = append(factors, model.RiskFactor{Name: f.Name, Impact: impact, Details: details})
		advice[f.Name] = f.Advice
		total += impact
	}

	slices.SortStableFunc(factors, func(a, b model.RiskFactor) int {
		if d := math.Abs(b.Impact) - math.Abs(a.Impact); d != 0 {
			if d > 0 {
				return 1
			}
			return -1
		}
		return strings.Compare(a.Name, b.Name)
	})

	risk := clamp(round2(total), 0, 100)
	level := model.LevelFor(risk)

	recs := append([]string(nil), p.TierAdvice[level]...)
	for _, f := range factors {
		if f.Impact > 0 && advice[f.Name] != "" {
			recs = append(recs, advice[f.Name])
		}
	}
	if factors == nil {
		factors = []model.RiskFactor{}
	}

	return model.RiskAssessment{
		Dimension:       p.Dimension,
		Days:            days,
		Risk:            risk,
		Level:           level,
		Factors:         factors,
		Recommendations: dedupe(recs),
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

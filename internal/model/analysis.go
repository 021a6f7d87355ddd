package model

import (
	"errors"
	"fmt"
	"math"
)

// Answer is the coach's verdict on a pending decision.
type Answer string

const (
	AnswerYes   Answer = "yes"
	AnswerNo    Answer = "no"
	AnswerMaybe Answer = "maybe"
)

// Valid reports whether a is a recognized answer.
func (a Answer) Valid() bool {
	switch a {
	case AnswerYes, AnswerNo, AnswerMaybe:
		return true
	}
	return false
}

// PackagingWaste is a coarse packaging-waste estimate. The capitalized values
// are part of the wire contract.
type PackagingWaste string

const (
	PackagingLow    PackagingWaste = "Low"
	PackagingMedium PackagingWaste = "Medium"
	PackagingHigh   PackagingWaste = "High"
)

// Valid reports whether w is a recognized waste level.
func (w PackagingWaste) Valid() bool {
	switch w {
	case PackagingLow, PackagingMedium, PackagingHigh:
		return true
	}
	return false
}

// AnalysisResult is the structured impact estimate returned by the coach.
type AnalysisResult struct {
	Query               string      `json:"query"`
	Answer              Answer      `json:"answer"`
	Breakdown           Breakdown   `json:"breakdown"`
	Alternative         Alternative `json:"alternative"`
	FinalRecommendation string      `json:"final_recommendation"`
}

// Breakdown groups the three impact dimensions.
type Breakdown struct {
	CostImpact           CostImpact           `json:"cost_impact"`
	HealthImpact         HealthImpact         `json:"health_impact"`
	SustainabilityImpact SustainabilityImpact `json:"sustainability_impact"`
}

// CostImpact is the financial dimension of a breakdown.
type CostImpact struct {
	Immediate       float64 `json:"immediate"`
	BudgetPct       float64 `json:"budget_pct"`
	OpportunityCost string  `json:"opportunity_cost"`
}

// HealthImpact is the health dimension of a breakdown.
type HealthImpact struct {
	Calories         float64 `json:"calories"`
	NutritionQuality float64 `json:"nutrition_quality"`
	WellnessChange   float64 `json:"wellness_change"`
}

// SustainabilityImpact is the environmental dimension of a breakdown.
type SustainabilityImpact struct {
	CO2eKg         float64        `json:"co2e_kg"`
	PackagingWaste PackagingWaste `json:"packaging_waste"`
	ScoreChange    float64        `json:"score_change"`
}

// Alternative is the suggested substitute for the decision under review.
type Alternative struct {
	Suggestion                string  `json:"suggestion"`
	Cost                      float64 `json:"cost"`
	CostSaved                 float64 `json:"cost_saved"`
	Calories                  float64 `json:"calories"`
	HealthImprovement         float64 `json:"health_improvement"`
	SustainabilityImprovement float64 `json:"sustainability_improvement"`
	Reasoning                 string  `json:"reasoning"`
}

// fieldKind is the JSON type a contract field must decode to.
type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindObject
)

// contractField describes one required field of the analysis contract.
// Enum restricts a string field to a fixed set; Fields lists the children of
// an object field.
type contractField struct {
	Name   string
	Kind   fieldKind
	Enum   []string
	Fields []contractField
}

var analysisContract = []contractField{
	{Name: "query", Kind: kindString},
	{Name: "answer", Kind: kindString, Enum: []string{"yes", "no", "maybe"}},
	{Name: "breakdown", Kind: kindObject, Fields: []contractField{
		{Name: "cost_impact", Kind: kindObject, Fields: []contractField{
			{Name: "immediate", Kind: kindNumber},
			{Name: "budget_pct", Kind: kindNumber},
			{Name: "opportunity_cost", Kind: kindString},
		}},
		{Name: "health_impact", Kind: kindObject, Fields: []contractField{
			{Name: "calories", Kind: kindNumber},
			{Name: "nutrition_quality", Kind: kindNumber},
			{Name: "wellness_change", Kind: kindNumber},
		}},
		{Name: "sustainability_impact", Kind: kindObject, Fields: []contractField{
			{Name: "co2e_kg", Kind: kindNumber},
			{Name: "packaging_waste", Kind: kindString, Enum: []string{"Low", "Medium", "High"}},
			{Name: "score_change", Kind: kindNumber},
		}},
	}},
	{Name: "alternative", Kind: kindObject, Fields: []contractField{
		{Name: "suggestion", Kind: kindString},
		{Name: "cost", Kind: kindNumber},
		{Name: "cost_saved", Kind: kindNumber},
		{Name: "calories", Kind: kindNumber},
		{Name: "health_improvement", Kind: kindNumber},
		{Name: "sustainability_improvement", Kind: kindNumber},
		{Name: "reasoning", Kind: kindString},
	}},
	{Name: "final_recommendation", Kind: kindString},
}

// IsValidAnalysisResult reports whether candidate, a generically decoded JSON
// value, has the exact shape of an AnalysisResult: every field present with
// the right JSON type, every number finite, every enum a member.
func IsValidAnalysisResult(candidate any) bool {
	return checkContract(candidate, analysisContract, "") == nil
}

// CheckAnalysisResult is IsValidAnalysisResult with the first violation
// reported, for logging.
func CheckAnalysisResult(candidate any) error {
	return checkContract(candidate, analysisContract, "")
}

func checkContract(v any, fields []contractField, path string) error {
	obj, ok := v.(map[string]any)
	if !ok {
		if path == "" {
			return errors.New("result is not an object")
		}
		return fmt.Errorf("%s is not an object", path)
	}
	for _, f := range fields {
		name := f.Name
		if path != "" {
			name = path + "." + f.Name
		}
		raw, present := obj[f.Name]
		if !present || raw == nil {
			return fmt.Errorf("%s is missing", name)
		}
		switch f.Kind {
		case kindString:
			s, ok := raw.(string)
			if !ok {
				return fmt.Errorf("%s is not a string", name)
			}
			if len(f.Enum) > 0 && !contains(f.Enum, s) {
				return fmt.Errorf("%s has unexpected value %q", name, s)
			}
		case kindNumber:
			n, ok := raw.(float64)
			if !ok {
				return fmt.Errorf("%s is not a number", name)
			}
			if math.IsNaN(n) || math.IsInf(n, 0) {
				return fmt.Errorf("%s is not finite", name)
			}
		case kindObject:
			if err := checkContract(raw, f.Fields, name); err != nil {
				return err
			}
		}
	}
	return nil
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// Validate checks the typed form of a result: enums must be members and
// numbers finite. Presence cannot be checked on a struct; use
// IsValidAnalysisResult on the decoded value for that.
func (r AnalysisResult) Validate() error {
	if !r.Answer.Valid() {
		return fmt.Errorf("answer has unexpected value %q", r.Answer)
	}
	if err := r.Breakdown.Validate(); err != nil {
		return err
	}
	return r.Alternative.Validate()
}

// Validate checks enum membership and finiteness of a breakdown.
func (b Breakdown) Validate() error {
	if !b.SustainabilityImpact.PackagingWaste.Valid() {
		return fmt.Errorf("breakdown.sustainability_impact.packaging_waste has unexpected value %q", b.SustainabilityImpact.PackagingWaste)
	}
	for name, n := range map[string]float64{
		"cost_impact.immediate":              b.CostImpact.Immediate,
		"cost_impact.budget_pct":             b.CostImpact.BudgetPct,
		"health_impact.calories":             b.HealthImpact.Calories,
		"health_impact.nutrition_quality":    b.HealthImpact.NutritionQuality,
		"health_impact.wellness_change":      b.HealthImpact.WellnessChange,
		"sustainability_impact.co2e_kg":      b.SustainabilityImpact.CO2eKg,
		"sustainability_impact.score_change": b.SustainabilityImpact.ScoreChange,
	} {
		if !finite(n) {
			return fmt.Errorf("breakdown.%s is not finite", name)
		}
	}
	return nil
}

// Validate checks finiteness of an alternative's numbers.
func (a Alternative) Validate() error {
	for name, n := range map[string]float64{
		"cost":                       a.Cost,
		"cost_saved":                 a.CostSaved,
		"calories":                   a.Calories,
		"health_improvement":         a.HealthImprovement,
		"sustainability_improvement": a.SustainabilityImprovement,
	} {
		if !finite(n) {
			return fmt.Errorf("alternative.%s is not finite", name)
		}
	}
	return nil
}

func finite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

package risk

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lifemosaic/negotiator/internal/model"
)

// Weights overrides factor weights by dimension and factor name:
//
//	burnout:
//	  Sleep deficit: 25
//	financial:
//	  Spending velocity: 30
type Weights map[model.RiskDimension]map[string]float64

// LoadWeights reads a YAML weight file. An empty path returns nil weights.
func LoadWeights(path string) (Weights, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("risk: read policy file: %w", err)
	}
	var w Weights
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("risk: parse policy file %s: %w", path, err)
	}
	return w, nil
}

// Apply returns a copy of policies with the overrides applied. Unknown
// dimensions or factor names are an error so typos don't silently keep the
// defaults.
func (w Weights) Apply(policies map[model.RiskDimension]Policy) (map[model.RiskDimension]Policy, error) {
	out := make(map[model.RiskDimension]Policy, len(policies))
	for d, p := range policies {
		p.Factors = append([]Factor(nil), p.Factors...)
		out[d] = p
	}
	for d, overrides := range w {
		p, ok := out[d]
		if !ok {
			return nil, fmt.Errorf("risk: policy file: %w: %q", ErrUnknownDimension, d)
		}
		for name, weight := range overrides {
			i := factorIndex(p.Factors, name)
			if i < 0 {
				return nil, fmt.Errorf("risk: policy file: %s has no factor %q", d, name)
			}
			p.Factors[i].Weight = weight
		}
	}
	return out, nil
}

func factorIndex(factors []Factor, name string) int {
	for i, f := range factors {
		if f.Name == name {
			return i
		}
	}
	return -1
}

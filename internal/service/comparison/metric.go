package comparison

import (
	"math"

	"github.com/lifemosaic/negotiator/internal/model"
)

// extractor pulls one metric's value from an event. ok is false when the
// event does not contribute to the metric.
type extractor func(e model.Event) (v float64, ok bool)

// metricSpec describes how a metric is derived from the event stream.
// Summed metrics add up per bucket; the rest are averaged over contributing
// events.
type metricSpec struct {
	types   []model.EventType // event types to read; nil reads all
	extract extractor
	summed  bool
}

var metrics = map[model.Metric]metricSpec{
	model.MetricSpending: {
		types:  []model.EventType{model.EventSpending},
		summed: true,
		extract: func(e model.Event) (float64, bool) {
			if e.Amount == nil {
				return 0, false
			}
			return math.Abs(*e.Amount), true
		},
	},
	model.MetricWellness: {
		extract: func(e model.Event) (float64, bool) {
			if e.Scores.WellnessImpact == nil {
				return 0, false
			}
			return *e.Scores.WellnessImpact, true
		},
	},
	model.MetricSustainability: {
		extract: func(e model.Event) (float64, bool) {
			if e.Scores.SustainabilityImpact == nil {
				return 0, false
			}
			return *e.Scores.SustainabilityImpact, true
		},
	},
	model.MetricMovementMinutes: {
		types: []model.EventType{model.EventMovement},
		extract: func(e model.Event) (float64, bool) {
			if v, ok := e.MetadataFloat("duration_minutes"); ok {
				return v, true
			}
			if e.Amount != nil {
				return *e.Amount, true
			}
			return 0, false
		},
	},
	model.MetricSteps: {
		types: []model.EventType{model.EventMovement},
		extract: func(e model.Event) (float64, bool) {
			return e.MetadataFloat("steps")
		},
	},
}

// bucket accumulates the contributions to one series point.
type bucket struct {
	sum float64
	n   int
}

func (b *bucket) add(v float64) {
	b.sum += v
	b.n++
}

// value is the bucket's metric value: the sum for summed metrics, otherwise
// the mean. An empty bucket is 0.
func (b bucket) value(summed bool) float64 {
	if b.n == 0 {
		return 0
	}
	if summed {
		return b.sum
	}
	return b.sum / float64(b.n)
}

// average is the mean value over points that have samples. Points without
// samples are excluded rather than counted as zero.
func average(points []model.MetricPoint) float64 {
	var sum float64
	var n int
	for _, p := range points {
		if p.Samples == 0 {
			continue
		}
		sum += p.Value
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

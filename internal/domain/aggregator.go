package domain

import (
	"fmt"
	"math"
)

// weightTolerance bounds the floating-point drift allowed in a weight sum.
const weightTolerance = 0.001

// Weights holds the contribution of each criterion to the total score.
type Weights struct {
	Relevance float64 `json:"relevance"`
	Cohesion  float64 `json:"cohesion"`
	Grammar   float64 `json:"grammar"`
	Structure float64 `json:"structure"`
}

// DefaultWeights are the fixed weights of the engine.
var DefaultWeights = Weights{
	Relevance: 0.30,
	Cohesion:  0.30,
	Grammar:   0.25,
	Structure: 0.15,
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Relevance + w.Cohesion + w.Grammar + w.Structure
}

// Validate checks that no weight is negative and that the weights sum to 1.0.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"relevance": w.Relevance,
		"cohesion":  w.Cohesion,
		"grammar":   w.Grammar,
		"structure": w.Structure,
	} {
		if v < 0 {
			return fmt.Errorf("%w: weight %s is negative (%.3f)", ErrInvalidConfiguration, name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %.3f, want 1.0", ErrInvalidConfiguration, sum)
	}
	return nil
}

// Aggregate builds a ScoreBreakdown from raw sub-scores using DefaultWeights.
// Sub-scores are clamped to [0,100] and rounded to two decimals first, so the
// reported total always equals the weighted sum of the reported sub-scores.
func Aggregate(relevance, cohesion, grammar, structure float64) ScoreBreakdown {
	return DefaultWeights.Aggregate(relevance, cohesion, grammar, structure)
}

// Aggregate combines sub-scores with these weights.
func (w Weights) Aggregate(relevance, cohesion, grammar, structure float64) ScoreBreakdown {
	b := ScoreBreakdown{
		Relevance: Round2(Clamp(relevance)),
		Cohesion:  Round2(Clamp(cohesion)),
		Grammar:   Round2(Clamp(grammar)),
		Structure: Round2(Clamp(structure)),
	}
	total := b.Relevance*w.Relevance +
		b.Cohesion*w.Cohesion +
		b.Grammar*w.Grammar +
		b.Structure*w.Structure
	b.Total = Round2(Clamp(total))
	return b
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Clamp bounds a score to [0,100]. NaN maps to 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

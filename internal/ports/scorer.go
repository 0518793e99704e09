// Package ports declares the interfaces between the evaluation engine and
// the capabilities and stores it depends on.
package ports

import (
	"context"

	"github.com/ahrav/go-essay-judge/internal/domain"
)

// ScoreResult is the outcome of one scorer.
type ScoreResult struct {
	// Value is the sub-score in [0,100].
	Value float64

	// Degraded is set when the scorer fell back to a documented default or a
	// reduced-fidelity algorithm.
	Degraded bool

	// Reason explains a degraded result.
	Reason string

	// Transient is set when the fallback was caused by a failure that may
	// not recur, such as an unreachable grammar backend. Transient results
	// are not cached.
	Transient bool
}

// Scored returns a full-fidelity result.
func Scored(v float64) ScoreResult { return ScoreResult{Value: v} }

// Degraded returns a fallback result with the reason it was used.
func Degraded(v float64, reason string) ScoreResult {
	return ScoreResult{Value: v, Degraded: true, Reason: reason}
}

// Transient returns a fallback result caused by a failure that may not recur.
func Transient(v float64, reason string) ScoreResult {
	return ScoreResult{Value: v, Degraded: true, Reason: reason, Transient: true}
}

// Scorer computes one criterion of an evaluation. An error return means the
// scorer failed unexpectedly; the engine substitutes the neutral score.
type Scorer interface {
	// Criterion identifies the dimension this scorer measures.
	Criterion() domain.Criterion

	// Score evaluates in.
	Score(ctx context.Context, in domain.EvaluationInput) (ScoreResult, error)
}

// Tokenizer splits text into words, sentences, and paragraphs. Empty or
// whitespace-only text yields empty slices.
type Tokenizer interface {
	// Mode names the segmentation strategy, e.g. "linguistic" or "naive".
	Mode() string

	// Words returns lowercased word tokens.
	Words(text string) []string

	// Sentences returns sentence strings with surrounding space trimmed.
	Sentences(text string) []string

	// Paragraphs returns non-empty blank-line-delimited blocks.
	Paragraphs(text string) []string
}

// SimilarityModel scores lexical similarity between consecutive sentences
// of one text.
type SimilarityModel interface {
	// ConsecutiveSimilarities returns len(sentences)-1 values in [0,1].
	ConsecutiveSimilarities(sentences []string) ([]float64, error)
}

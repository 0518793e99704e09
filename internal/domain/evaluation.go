// Package domain holds the value types of the essay evaluation engine and the
// surrounding competition model. It has no dependencies outside the
// standard library.
package domain

import (
	"fmt"
	"strings"
)

// Criterion names one of the four scoring dimensions.
type Criterion string

// The four criteria combined into a total score.
const (
	CriterionRelevance Criterion = "relevance"
	CriterionCohesion  Criterion = "cohesion"
	CriterionGrammar   Criterion = "grammar"
	CriterionStructure Criterion = "structure"
)

// Criteria lists every criterion in reporting order.
var Criteria = []Criterion{CriterionRelevance, CriterionCohesion, CriterionGrammar, CriterionStructure}

// NeutralScore is reported by a scorer that lacks the signal to compute a
// meaningful result, and substituted for a scorer that failed.
const NeutralScore = 50.0

// EvaluationInput is the immutable input of one evaluation.
type EvaluationInput struct {
	// Title is the essay title used as the relevance reference text.
	Title string `json:"title" yaml:"title"`

	// Content is the essay body.
	Content string `json:"content" yaml:"content"`

	// Topic optionally extends the relevance reference text.
	Topic string `json:"topic,omitempty" yaml:"topic,omitempty"`

	// MinWords is the lower bound of the expected word-count band.
	MinWords int `json:"min_words" yaml:"min_words"`

	// MaxWords is the upper bound of the expected word-count band.
	MaxWords int `json:"max_words" yaml:"max_words"`
}

// Validate checks the word-band contract. Content and title are never
// rejected; empty text is a scoring condition, not an input error.
func (in EvaluationInput) Validate() error {
	verr := NewValidationError("EvaluationInput")
	if in.MinWords <= 0 {
		verr.AddError(fmt.Sprintf("min_words must be positive, got %d", in.MinWords))
	}
	if in.MaxWords <= 0 {
		verr.AddError(fmt.Sprintf("max_words must be positive, got %d", in.MaxWords))
	}
	if in.MinWords > in.MaxWords {
		verr.AddError(fmt.Sprintf("min_words (%d) must not exceed max_words (%d)", in.MinWords, in.MaxWords))
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// ReferenceText returns the text keywords are drawn from: the title, joined
// with the topic when one is set.
func (in EvaluationInput) ReferenceText() string {
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return in.Title
	}
	return in.Title + " " + topic
}

// ScoreBreakdown is the result of one evaluation. Every field is in [0,100]
// and rounded to two decimals.
type ScoreBreakdown struct {
	Relevance float64 `json:"relevance"`
	Cohesion  float64 `json:"cohesion"`
	Grammar   float64 `json:"grammar"`
	Structure float64 `json:"structure"`
	Total     float64 `json:"total"`
}

// Score returns the sub-score for a criterion.
func (b ScoreBreakdown) Score(c Criterion) float64 {
	switch c {
	case CriterionRelevance:
		return b.Relevance
	case CriterionCohesion:
		return b.Cohesion
	case CriterionGrammar:
		return b.Grammar
	case CriterionStructure:
		return b.Structure
	default:
		return 0
	}
}

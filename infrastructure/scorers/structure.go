package scorers

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-essay-judge/internal/domain"
	"github.com/ahrav/go-essay-judge/internal/ports"
)

// StructureConfig tunes the length and paragraph components.
type StructureConfig struct {
	// LengthPoints is the length component for an in-band word count.
	LengthPoints float64 `yaml:"length_points" json:"length_points" validate:"gt=0,lte=100"`

	// OverflowFactor times MaxWords is where length decay stops and
	// OverflowFloor applies.
	OverflowFactor float64 `yaml:"overflow_factor" json:"overflow_factor" validate:"gt=1"`

	// OverflowFloor is the length component for excessively long essays.
	OverflowFloor float64 `yaml:"overflow_floor" json:"overflow_floor" validate:"gte=0,lte=100"`

	// ParagraphPoints[i] is the paragraph component for i paragraphs; the
	// last entry applies to every larger count.
	ParagraphPoints []float64 `yaml:"paragraph_points" json:"paragraph_points" validate:"required,min=1,dive,gte=0,lte=100"`
}

// DefaultStructureConfig returns the calibrated structure settings.
func DefaultStructureConfig() StructureConfig {
	return StructureConfig{
		LengthPoints:    70,
		OverflowFactor:  1.5,
		OverflowFloor:   30,
		ParagraphPoints: []float64{0, 10, 15, 20, 25, 30},
	}
}

// StructureScorer rewards conformance to the word band and paragraphing.
type StructureScorer struct {
	config    StructureConfig
	tokenizer ports.Tokenizer
	tracer    trace.Tracer
}

var _ ports.Scorer = (*StructureScorer)(nil)

// NewStructureScorer validates config and builds the scorer.
func NewStructureScorer(config StructureConfig, tokenizer ports.Tokenizer) (*StructureScorer, error) {
	if tokenizer == nil {
		return nil, ErrNilTokenizer
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid structure configuration: %w", err)
	}
	return &StructureScorer{
		config:    config,
		tokenizer: tokenizer,
		tracer:    otel.Tracer("structure-scorer"),
	}, nil
}

// Criterion returns domain.CriterionStructure.
func (s *StructureScorer) Criterion() domain.Criterion { return domain.CriterionStructure }

// Score returns 0 for empty content, otherwise the length component plus
// the paragraph component capped at 100. Words are counted on whitespace.
func (s *StructureScorer) Score(ctx context.Context, in domain.EvaluationInput) (ports.ScoreResult, error) {
	_, span := s.tracer.Start(ctx, "StructureScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.criterion", string(domain.CriterionStructure)),
			attribute.Int("config.min_words", in.MinWords),
			attribute.Int("config.max_words", in.MaxWords),
		),
	)
	defer span.End()

	if strings.TrimSpace(in.Content) == "" {
		return ports.Scored(0), nil
	}

	words := domain.WordCount(in.Content)
	paragraphs := len(s.tokenizer.Paragraphs(in.Content))
	length := s.LengthComponent(words, in.MinWords, in.MaxWords)
	para := s.ParagraphComponent(paragraphs)
	score := math.Min(length+para, 100)

	span.SetAttributes(
		attribute.Int("eval.words", words),
		attribute.Int("eval.paragraphs", paragraphs),
		attribute.Float64("eval.length_component", length),
		attribute.Float64("eval.paragraph_component", para),
		attribute.Float64("eval.score", score),
	)
	return ports.Scored(score), nil
}

// LengthComponent is LengthPoints inside [minWords, maxWords], a linear ramp
// from zero below it, a decay of LengthPoints*maxWords/words above it up to
// OverflowFactor*maxWords, and OverflowFloor from there on.
func (s *StructureScorer) LengthComponent(words, minWords, maxWords int) float64 {
	switch {
	case words >= minWords && words <= maxWords:
		return s.config.LengthPoints
	case words < minWords:
		return s.config.LengthPoints * float64(words) / float64(minWords)
	case float64(words) < s.config.OverflowFactor*float64(maxWords):
		return s.config.LengthPoints * float64(maxWords) / float64(words)
	default:
		return s.config.OverflowFloor
	}
}

// ParagraphComponent looks up the points for a paragraph count.
func (s *StructureScorer) ParagraphComponent(paragraphs int) float64 {
	points := s.config.ParagraphPoints
	if paragraphs < 0 {
		paragraphs = 0
	}
	if paragraphs >= len(points) {
		return points[len(points)-1]
	}
	return points[paragraphs]
}

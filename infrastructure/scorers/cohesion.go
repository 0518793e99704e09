package scorers

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-essay-judge/infrastructure/text"
	"github.com/ahrav/go-essay-judge/internal/domain"
	"github.com/ahrav/go-essay-judge/internal/ports"
)

// DefaultTransitions are the phrases credited by the heuristic cohesion score.
var DefaultTransitions = []string{
	"however", "therefore", "moreover", "furthermore", "consequently",
	"similarly", "additionally", "thus", "in addition", "on the other hand",
	"for example", "as a result", "in conclusion", "nevertheless",
}

// CohesionConfig tunes the heuristic fallback. The similarity curve is fixed.
type CohesionConfig struct {
	// Transitions are matched case-insensitively anywhere in the content.
	Transitions []string `yaml:"transitions" json:"transitions" validate:"required,min=1,dive,required"`

	// ParagraphBonus is added when the essay has at least BonusParagraphs
	// paragraphs.
	ParagraphBonus float64 `yaml:"paragraph_bonus" json:"paragraph_bonus" validate:"gte=0,lte=50"`

	// BonusParagraphs is the paragraph count that earns ParagraphBonus.
	BonusParagraphs int `yaml:"bonus_paragraphs" json:"bonus_paragraphs" validate:"min=1"`
}

// DefaultCohesionConfig returns the calibrated cohesion settings.
func DefaultCohesionConfig() CohesionConfig {
	return CohesionConfig{
		Transitions:     append([]string(nil), DefaultTransitions...),
		ParagraphBonus:  20,
		BonusParagraphs: 3,
	}
}

// CohesionScorer measures lexical similarity between consecutive sentences.
// Without a similarity model, or when the model fails, it scores paragraph
// count and transition phrases instead.
type CohesionScorer struct {
	config     CohesionConfig
	tokenizer  ports.Tokenizer
	similarity ports.SimilarityModel
	tracer     trace.Tracer
}

var _ ports.Scorer = (*CohesionScorer)(nil)

// NewCohesionScorer validates config and builds the scorer. similarity may
// be nil.
func NewCohesionScorer(config CohesionConfig, tokenizer ports.Tokenizer, similarity ports.SimilarityModel) (*CohesionScorer, error) {
	if tokenizer == nil {
		return nil, ErrNilTokenizer
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid cohesion configuration: %w", err)
	}
	return &CohesionScorer{
		config:     config,
		tokenizer:  tokenizer,
		similarity: similarity,
		tracer:     otel.Tracer("cohesion-scorer"),
	}, nil
}

// Criterion returns domain.CriterionCohesion.
func (s *CohesionScorer) Criterion() domain.Criterion { return domain.CriterionCohesion }

// Score returns 50 for content with fewer than two sentences.
func (s *CohesionScorer) Score(ctx context.Context, in domain.EvaluationInput) (ports.ScoreResult, error) {
	_, span := s.tracer.Start(ctx, "CohesionScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.criterion", string(domain.CriterionCohesion)),
			attribute.Bool("capability.similarity", s.similarity != nil),
		),
	)
	defer span.End()

	sentences := s.tokenizer.Sentences(in.Content)
	span.SetAttributes(attribute.Int("eval.sentences", len(sentences)))
	if len(sentences) < 2 {
		return ports.Scored(domain.NeutralScore), nil
	}

	if s.similarity == nil {
		return ports.Degraded(s.Heuristic(in.Content), "vector similarity unavailable"), nil
	}

	sims, err := s.similarity.ConsecutiveSimilarities(sentences)
	if err != nil || len(sims) == 0 {
		if err == nil {
			err = fmt.Errorf("no sentence pairs compared")
		}
		span.RecordError(err)
		return ports.Degraded(s.Heuristic(in.Content), "similarity failed: "+err.Error()), nil
	}

	var sum float64
	for _, v := range sims {
		sum += v
	}
	avg := sum / float64(len(sims))
	score := SimilarityCurve(avg)

	span.SetAttributes(
		attribute.Float64("eval.avg_similarity", avg),
		attribute.Float64("eval.score", score),
	)
	return ports.Scored(score), nil
}

// SimilarityCurve maps an average consecutive-sentence similarity to a
// score. Typical essay similarity of 0.2 to 0.4 lands between 70 and 90.
func SimilarityCurve(avg float64) float64 {
	var score float64
	switch {
	case avg < 0.1:
		score = 50
	case avg < 0.2:
		score = 60 + avg*100
	case avg < 0.3:
		score = 70 + (avg-0.2)*100
	case avg < 0.4:
		score = 80 + (avg-0.3)*100
	default:
		score = 90 + math.Min((avg-0.4)*50, 10)
	}
	return math.Min(score, 100)
}

// Heuristic scores content without vector similarity: 50, plus
// ParagraphBonus for enough paragraphs, plus 5, 10 or 15 for one, two, or
// three or more distinct transition phrases.
func (s *CohesionScorer) Heuristic(content string) float64 {
	score := 50.0
	if len(s.tokenizer.Paragraphs(content)) >= s.config.BonusParagraphs {
		score += s.config.ParagraphBonus
	}

	lower := text.Lower(text.Normalize(content))
	found := 0
	for _, t := range s.config.Transitions {
		if strings.Contains(lower, text.Lower(t)) {
			found++
		}
	}
	switch {
	case found >= 3:
		score += 15
	case found == 2:
		score += 10
	case found == 1:
		score += 5
	}
	return math.Min(score, 100)
}

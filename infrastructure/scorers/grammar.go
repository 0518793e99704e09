package scorers

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-essay-judge/internal/domain"
	"github.com/ahrav/go-essay-judge/internal/ports"
)

// GrammarConfig tunes the error-density penalty.
type GrammarConfig struct {
	// UnavailableScore is reported when no grammar checker is configured.
	UnavailableScore float64 `yaml:"unavailable_score" json:"unavailable_score" validate:"gte=0,lte=100"`

	// FailureScore is reported when the grammar check call fails.
	FailureScore float64 `yaml:"failure_score" json:"failure_score" validate:"gte=0,lte=100"`

	// PenaltyPerErrorRate is subtracted from 100 per unit of errors/words.
	// 1000 costs 10 points per error per 100 words.
	PenaltyPerErrorRate float64 `yaml:"penalty_per_error_rate" json:"penalty_per_error_rate" validate:"gt=0"`
}

// DefaultGrammarConfig returns the calibrated grammar settings.
func DefaultGrammarConfig() GrammarConfig {
	return GrammarConfig{
		UnavailableScore:    75,
		FailureScore:        domain.NeutralScore,
		PenaltyPerErrorRate: 1000,
	}
}

// GrammarScorer penalises the density of grammar issues reported by a
// grammar checker.
type GrammarScorer struct {
	config    GrammarConfig
	tokenizer ports.Tokenizer
	checker   ports.GrammarChecker
	tracer    trace.Tracer
}

var _ ports.Scorer = (*GrammarScorer)(nil)

// NewGrammarScorer validates config and builds the scorer. checker may be nil.
func NewGrammarScorer(config GrammarConfig, tokenizer ports.Tokenizer, checker ports.GrammarChecker) (*GrammarScorer, error) {
	if tokenizer == nil {
		return nil, ErrNilTokenizer
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid grammar configuration: %w", err)
	}
	return &GrammarScorer{
		config:    config,
		tokenizer: tokenizer,
		checker:   checker,
		tracer:    otel.Tracer("grammar-scorer"),
	}, nil
}

// Criterion returns domain.CriterionGrammar.
func (s *GrammarScorer) Criterion() domain.Criterion { return domain.CriterionGrammar }

// Score returns 0 for empty content, UnavailableScore without a checker,
// FailureScore when the check fails, 100 when the tokenizer finds no words,
// and otherwise 100 - errors/words*PenaltyPerErrorRate bounded to [0,100].
func (s *GrammarScorer) Score(ctx context.Context, in domain.EvaluationInput) (ports.ScoreResult, error) {
	ctx, span := s.tracer.Start(ctx, "GrammarScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.criterion", string(domain.CriterionGrammar)),
			attribute.Bool("capability.grammar", s.checker != nil),
		),
	)
	defer span.End()

	if strings.TrimSpace(in.Content) == "" {
		return ports.Scored(0), nil
	}
	if s.checker == nil {
		return ports.Degraded(s.config.UnavailableScore, "grammar checker unavailable"), nil
	}

	issues, err := s.checker.CheckErrors(ctx, in.Content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grammar check failed")
		return ports.Transient(s.config.FailureScore, "grammar check failed: "+err.Error()), nil
	}
	if issues < 0 {
		issues = 0
	}

	words := len(s.tokenizer.Words(in.Content))
	if words == 0 {
		return ports.Scored(100), nil
	}

	rate := float64(issues) / float64(words)
	score := math.Min(math.Max(0, 100-rate*s.config.PenaltyPerErrorRate), 100)

	span.SetAttributes(
		attribute.String("grammar.backend", s.checker.Name()),
		attribute.Int("eval.issues", issues),
		attribute.Int("eval.words", words),
		attribute.Float64("eval.score", score),
	)
	return ports.Scored(score), nil
}

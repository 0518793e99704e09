// Package application wires the scorers into the evaluation engine and
// provides the services that run it: cached evaluation, acceptance-triggered
// background evaluation, and leaderboards.
package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-essay-judge/infrastructure/middleware"
	"github.com/ahrav/go-essay-judge/internal/domain"
	"github.com/ahrav/go-essay-judge/internal/ports"
)

// Engine construction errors.
var (
	// ErrMissingScorer is returned when a criterion has no scorer.
	ErrMissingScorer = errors.New("missing scorer")

	// ErrDuplicateScorer is returned when two scorers claim one criterion.
	ErrDuplicateScorer = errors.New("duplicate scorer")
)

// Evaluator produces a score breakdown for one essay.
type Evaluator interface {
	Evaluate(ctx context.Context, in domain.EvaluationInput) (domain.ScoreBreakdown, error)
}

// Analyzer is an Evaluator that also reports how each score was obtained.
type Analyzer interface {
	Evaluator
	Analyze(ctx context.Context, in domain.EvaluationInput) (Report, error)
}

// OutcomeStatus classifies how a sub-score was obtained.
type OutcomeStatus string

// Outcome statuses.
const (
	OutcomeOK       OutcomeStatus = "ok"
	OutcomeDegraded OutcomeStatus = "degraded"
	OutcomeFault    OutcomeStatus = "fault"
)

// Outcome records how one criterion was scored.
type Outcome struct {
	Criterion domain.Criterion `json:"criterion"`
	Score     float64          `json:"score"`
	Status    OutcomeStatus    `json:"status"`
	Reason    string           `json:"reason,omitempty"`
	Transient bool             `json:"-"`
	Duration  time.Duration    `json:"duration_ns"`
}

// Report is a score breakdown together with how it was produced.
type Report struct {
	Scores      domain.ScoreBreakdown `json:"scores"`
	Outcomes    []Outcome             `json:"outcomes"`
	Features    domain.Features       `json:"features"`
	Fingerprint string                `json:"fingerprint"`
}

// Cacheable reports whether the scores can be reused for identical input.
// Faults and transient fallbacks may not recur and are never reused.
func (r Report) Cacheable() bool {
	for _, o := range r.Outcomes {
		if o.Status == OutcomeFault || o.Transient {
			return false
		}
	}
	return true
}

// Capabilities describes the optional resources an engine was built with
// and identifies the configuration its scorers were built from.
type Capabilities struct {
	TokenizerMode  string `json:"tokenizer_mode"`
	Similarity     bool   `json:"similarity"`
	GrammarBackend string `json:"grammar_backend"`

	// Stopwords is the digest of the stopword list in use.
	Stopwords string `json:"stopwords,omitempty"`
	// ScorerConfig is the digest of the scorer settings.
	ScorerConfig string `json:"scorer_config,omitempty"`
}

// Fingerprint is a stable string identifying the capability set. Two
// engines with equal fingerprints score identically.
func (c Capabilities) Fingerprint() string {
	grammar := c.GrammarBackend
	if grammar == "" {
		grammar = "none"
	}
	fp := fmt.Sprintf("tokenizer=%s;similarity=%t;grammar=%s", c.TokenizerMode, c.Similarity, grammar)
	if c.Stopwords != "" {
		fp += ";stopwords=" + c.Stopwords
	}
	if c.ScorerConfig != "" {
		fp += ";scorers=" + c.ScorerConfig
	}
	return fp
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger for degraded-mode notices and faults.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m ports.MetricsCollector) EngineOption {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithCapabilities records the capability set used for cache keys.
func WithCapabilities(c Capabilities) EngineOption {
	return func(e *Engine) { e.capabilities = c }
}

// Engine runs the four scorers concurrently and aggregates their results.
// It holds no per-evaluation state and is safe for concurrent use.
type Engine struct {
	scorers      []ports.Scorer
	logger       *zap.Logger
	metrics      ports.MetricsCollector
	tracer       trace.Tracer
	capabilities Capabilities
}

var _ Analyzer = (*Engine)(nil)

// NewEngine requires exactly one scorer per criterion.
func NewEngine(scorers []ports.Scorer, opts ...EngineOption) (*Engine, error) {
	byCriterion := make(map[domain.Criterion]ports.Scorer, len(scorers))
	for _, s := range scorers {
		if s == nil {
			return nil, fmt.Errorf("%w: nil scorer", ErrMissingScorer)
		}
		c := s.Criterion()
		if _, dup := byCriterion[c]; dup {
			return nil, fmt.Errorf("%w for %s", ErrDuplicateScorer, c)
		}
		byCriterion[c] = s
	}

	ordered := make([]ports.Scorer, 0, len(domain.Criteria))
	for _, c := range domain.Criteria {
		s, ok := byCriterion[c]
		if !ok {
			return nil, fmt.Errorf("%w for %s", ErrMissingScorer, c)
		}
		ordered = append(ordered, s)
	}
	if len(byCriterion) != len(domain.Criteria) {
		return nil, fmt.Errorf("unknown criterion among %d scorers", len(scorers))
	}

	e := &Engine{
		scorers: ordered,
		logger:  zap.NewNop(),
		metrics: middleware.NopMetrics{},
		tracer:  otel.Tracer("evaluation-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Capabilities returns the capability set the engine was built with.
func (e *Engine) Capabilities() Capabilities { return e.capabilities }

// Evaluate scores in. It fails only for an invalid word band or when ctx
// ends before every scorer has finished; scorer failures are replaced by
// the neutral score.
func (e *Engine) Evaluate(ctx context.Context, in domain.EvaluationInput) (domain.ScoreBreakdown, error) {
	r, err := e.Analyze(ctx, in)
	if err != nil {
		return domain.ScoreBreakdown{}, err
	}
	return r.Scores, nil
}

// Analyze is Evaluate plus per-criterion outcomes and essay features.
func (e *Engine) Analyze(ctx context.Context, in domain.EvaluationInput) (Report, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.Evaluate",
		trace.WithAttributes(
			attribute.Int("input.min_words", in.MinWords),
			attribute.Int("input.max_words", in.MaxWords),
			attribute.Bool("input.has_topic", in.Topic != ""),
			attribute.String("engine.capabilities", e.capabilities.Fingerprint()),
		),
	)
	defer span.End()

	if err := in.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid input")
		e.metrics.RecordCounter(ports.MetricEvaluations, 1, map[string]string{"status": "invalid"})
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		e.metrics.RecordCounter(ports.MetricEvaluations, 1, map[string]string{"status": "canceled"})
		return Report{}, err
	}

	outcomes := make([]Outcome, len(e.scorers))
	var g errgroup.Group
	for i, s := range e.scorers {
		g.Go(func() error {
			outcomes[i] = e.score(ctx, s, in)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation canceled")
		e.metrics.RecordCounter(ports.MetricEvaluations, 1, map[string]string{"status": "canceled"})
		return Report{}, err
	}

	scores := domain.Aggregate(outcomes[0].Score, outcomes[1].Score, outcomes[2].Score, outcomes[3].Score)
	for i := range outcomes {
		outcomes[i].Score = scores.Score(outcomes[i].Criterion)
		e.metrics.RecordHistogram(ports.MetricCriterionScore, outcomes[i].Score,
			map[string]string{"criterion": string(outcomes[i].Criterion)})
	}
	e.metrics.RecordHistogram(ports.MetricTotalScore, scores.Total, nil)
	e.metrics.RecordCounter(ports.MetricEvaluations, 1, map[string]string{"status": "ok"})

	span.SetAttributes(
		attribute.Float64("score.relevance", scores.Relevance),
		attribute.Float64("score.cohesion", scores.Cohesion),
		attribute.Float64("score.grammar", scores.Grammar),
		attribute.Float64("score.structure", scores.Structure),
		attribute.Float64("score.total", scores.Total),
	)

	return Report{
		Scores:      scores,
		Outcomes:    outcomes,
		Features:    domain.ExtractFeatures(in.Title, in.Content),
		Fingerprint: e.capabilities.Fingerprint(),
	}, nil
}

// score runs one scorer, converting errors, panics, and non-finite values
// into a neutral fault outcome.
func (e *Engine) score(ctx context.Context, s ports.Scorer, in domain.EvaluationInput) (out Outcome) {
	c := s.Criterion()
	labels := map[string]string{"criterion": string(c)}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out = e.fault(c, fmt.Errorf("panic: %v", r), zap.ByteString("stack", debug.Stack()))
		}
		out.Duration = time.Since(start)
		e.metrics.RecordLatency(ports.MetricScorerLatency, out.Duration, labels)
	}()

	res, err := s.Score(ctx, in)
	switch {
	case err != nil:
		return e.fault(c, err)
	case math.IsNaN(res.Value) || math.IsInf(res.Value, 0):
		return e.fault(c, fmt.Errorf("non-finite score %v", res.Value))
	case res.Degraded:
		e.logger.Warn("Scorer running in degraded mode",
			zap.String("scorer", string(c)),
			zap.String("reason", res.Reason),
			zap.Float64("score", res.Value),
		)
		e.metrics.RecordCounter(ports.MetricScorerDegraded, 1, labels)
		return Outcome{Criterion: c, Score: res.Value, Status: OutcomeDegraded, Reason: res.Reason, Transient: res.Transient}
	default:
		return Outcome{Criterion: c, Score: res.Value, Status: OutcomeOK}
	}
}

func (e *Engine) fault(c domain.Criterion, err error, fields ...zap.Field) Outcome {
	fields = append([]zap.Field{zap.String("scorer", string(c)), zap.Error(err)}, fields...)
	e.logger.Error("Scorer failed, substituting neutral score", fields...)
	e.metrics.RecordCounter(ports.MetricScorerFaults, 1, map[string]string{"criterion": string(c)})
	return Outcome{
		Criterion: c,
		Score:     domain.NeutralScore,
		Status:    OutcomeFault,
		Reason:    err.Error(),
		Transient: true,
	}
}

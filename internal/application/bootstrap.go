package application

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-essay-judge/infrastructure/cache"
	"github.com/ahrav/go-essay-judge/infrastructure/grammar"
	"github.com/ahrav/go-essay-judge/infrastructure/middleware"
	"github.com/ahrav/go-essay-judge/infrastructure/scorers"
	"github.com/ahrav/go-essay-judge/infrastructure/storage/sqlite"
	"github.com/ahrav/go-essay-judge/infrastructure/text"
	"github.com/ahrav/go-essay-judge/internal/ports"
)

// Runtime holds the engine and the resources built for it.
type Runtime struct {
	Config    Config
	Logger    *zap.Logger
	Metrics   *middleware.PrometheusMetrics
	Engine    *Engine
	Evaluator Analyzer

	closers []func() error
}

// Close releases the resources opened by Bootstrap.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// Bootstrap builds the engine described by cfg. Optional capabilities that
// cannot be constructed are logged and left out, so the engine always
// starts. Only invalid scorer configuration and an unreachable Redis cache
// are errors. reg receives the Prometheus collectors; nil selects the
// default registerer.
func Bootstrap(ctx context.Context, cfg Config, logger *zap.Logger, reg prometheus.Registerer) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rt := &Runtime{
		Config:  cfg,
		Logger:  logger,
		Metrics: middleware.NewPrometheusMetrics(reg),
	}

	tokenizer := newTokenizer(cfg.Tokenizer, logger)
	stopwords := newStopwords(cfg.Tokenizer, logger)

	var similarity ports.SimilarityModel
	if cfg.Similarity.Enabled {
		similarity = text.NewTFIDF(stopwords)
	}

	checker := newGrammarChecker(cfg.Grammar, rt.Metrics, logger)

	scorerCfg, err := loadScorerConfigs(cfg.ScorersFile)
	if err != nil {
		return nil, err
	}

	relevance, err := scorers.NewRelevanceScorer(scorerCfg.Relevance, tokenizer, stopwords)
	if err != nil {
		return nil, err
	}
	cohesion, err := scorers.NewCohesionScorer(scorerCfg.Cohesion, tokenizer, similarity)
	if err != nil {
		return nil, err
	}
	grammarScorer, err := scorers.NewGrammarScorer(scorerCfg.Grammar, tokenizer, checker)
	if err != nil {
		return nil, err
	}
	structure, err := scorers.NewStructureScorer(scorerCfg.Structure, tokenizer)
	if err != nil {
		return nil, err
	}

	caps := Capabilities{
		TokenizerMode: tokenizer.Mode(),
		Similarity:    similarity != nil,
		Stopwords:     stopwords.Digest(),
		ScorerConfig:  scorerCfg.Digest(),
	}
	if checker != nil {
		caps.GrammarBackend = checker.Name()
	}

	rt.Engine, err = NewEngine(
		[]ports.Scorer{relevance, cohesion, grammarScorer, structure},
		WithLogger(logger),
		WithMetrics(rt.Metrics),
		WithCapabilities(caps),
	)
	if err != nil {
		return nil, err
	}

	store, err := rt.newCacheStore(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	if store == nil {
		rt.Evaluator = rt.Engine
	} else {
		rt.Evaluator = NewCachedEvaluator(rt.Engine, store, cfg.Cache.TTL, logger, rt.Metrics)
	}

	logger.Info("Evaluation engine ready",
		zap.String("capabilities", caps.Fingerprint()),
		zap.String("cache", cfg.Cache.Backend),
	)
	return rt, nil
}

// OpenStore opens the SQLite essay store and registers it for Close.
func (r *Runtime) OpenStore(ctx context.Context) (*sqlite.Repository, error) {
	repo, err := sqlite.Open(ctx, r.Config.Storage.Path, r.Logger)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, repo.Close)
	return repo, nil
}

func newTokenizer(cfg TokenizerConfig, logger *zap.Logger) ports.Tokenizer {
	tok, err := text.New(cfg.Mode)
	if err == nil {
		return tok
	}
	logger.Warn("Tokenizer unavailable, falling back to naive segmentation",
		zap.String("mode", cfg.Mode),
		zap.Error(err),
	)
	return text.NewNaiveTokenizer()
}

func newStopwords(cfg TokenizerConfig, logger *zap.Logger) text.Stopwords {
	if cfg.StopwordsFile == "" {
		return text.EnglishStopwords()
	}
	sw, err := text.LoadStopwords(cfg.StopwordsFile)
	if err != nil {
		logger.Warn("Stopword list unavailable, using fallback list",
			zap.String("path", cfg.StopwordsFile),
			zap.Error(err),
		)
		return text.Fallback()
	}
	return sw
}

func newGrammarChecker(cfg GrammarConfig, metrics *middleware.PrometheusMetrics, logger *zap.Logger) ports.GrammarChecker {
	if cfg.Backend == "" {
		logger.Info("Grammar checking disabled")
		return nil
	}

	mw := []grammar.Middleware{
		grammar.TracingMiddleware(),
		grammar.MetricsMiddleware(metrics),
		grammar.CircuitBreakerMiddlewareWithMetrics(cfg.BreakerFailures, cfg.BreakerCooldown, metrics.CircuitBreakerMetrics(cfg.Backend)),
		grammar.RetryMiddleware(cfg.MaxRetries, cfg.RetryBaseDelay, cfg.RetryMaxDelay),
	}
	if cfg.RateLimit > 0 {
		mw = append(mw, grammar.RateLimitMiddleware(rate.Limit(cfg.RateLimit), cfg.RateBurst))
	}
	mw = append(mw, grammar.TimeoutMiddleware(cfg.Timeout))

	checker, err := grammar.NewChecker(cfg.GrammarCheckerConfig(), mw...)
	if err != nil {
		logger.Warn("Grammar checker unavailable, grammar scores use the default",
			zap.String("backend", cfg.Backend),
			zap.Error(err),
		)
		return nil
	}
	return checker
}

func loadScorerConfigs(path string) (scorers.Configs, error) {
	if path == "" {
		return scorers.DefaultConfigs(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return scorers.Configs{}, fmt.Errorf("failed to open scorer configuration: %w", err)
	}
	defer f.Close()
	return scorers.LoadConfigs(f)
}

func (r *Runtime) newCacheStore(ctx context.Context, cfg CacheConfig) (ports.CacheStore, error) {
	switch cfg.Backend {
	case CacheMemory:
		return cache.NewMemoryStore(cfg.MaxEntries), nil
	case CacheRedis:
		store, err := cache.NewRedisStore(ctx, cfg.Redis, r.Logger)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, store.Close)
		return store, nil
	default:
		return nil, nil
	}
}

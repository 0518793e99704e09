package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ahrav/go-essay-judge/infrastructure/middleware"
	"github.com/ahrav/go-essay-judge/internal/domain"
	"github.com/ahrav/go-essay-judge/internal/ports"
)

// CachedEvaluator memoises engine reports in a CacheStore keyed by the
// input and the engine's capability fingerprint. Reports containing a fault
// or a transient fallback are never stored, and cache failures only cost a
// recomputation.
type CachedEvaluator struct {
	engine  *Engine
	store   ports.CacheStore
	ttl     time.Duration
	logger  *zap.Logger
	metrics ports.MetricsCollector
	encode  func(v any) ([]byte, error)
}

var _ Analyzer = (*CachedEvaluator)(nil)

// NewCachedEvaluator wraps engine. A zero ttl keeps entries until evicted.
func NewCachedEvaluator(engine *Engine, store ports.CacheStore, ttl time.Duration, logger *zap.Logger, metrics ports.MetricsCollector) *CachedEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = middleware.NopMetrics{}
	}
	return &CachedEvaluator{
		engine:  engine,
		store:   store,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
		encode:  json.Marshal,
	}
}

// CacheKey derives the key for in under an engine fingerprint.
func CacheKey(fingerprint string, in domain.EvaluationInput) string {
	payload, _ := json.Marshal(struct {
		Fingerprint string                 `json:"fingerprint"`
		Input       domain.EvaluationInput `json:"input"`
	}{fingerprint, in})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Evaluate returns the cached breakdown for in or computes and stores it.
func (c *CachedEvaluator) Evaluate(ctx context.Context, in domain.EvaluationInput) (domain.ScoreBreakdown, error) {
	r, err := c.Analyze(ctx, in)
	if err != nil {
		return domain.ScoreBreakdown{}, err
	}
	return r.Scores, nil
}

// Analyze is the cached form of Engine.Analyze.
func (c *CachedEvaluator) Analyze(ctx context.Context, in domain.EvaluationInput) (Report, error) {
	if err := in.Validate(); err != nil {
		return Report{}, err
	}
	key := CacheKey(c.engine.Capabilities().Fingerprint(), in)

	if r, ok := c.lookup(ctx, key); ok {
		return r, nil
	}

	r, err := c.engine.Analyze(ctx, in)
	if err != nil {
		return Report{}, err
	}
	if !r.Cacheable() {
		c.logger.Debug("Skipping cache store for degraded evaluation", zap.String("key", key))
		return r, nil
	}

	data, err := c.encode(r)
	if err != nil {
		c.logger.Warn("Failed to encode evaluation for cache", zap.String("key", key), zap.Error(err))
		return r, nil
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to store evaluation in cache", zap.String("key", key), zap.Error(err))
	}
	return r, nil
}

func (c *CachedEvaluator) lookup(ctx context.Context, key string) (Report, bool) {
	data, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		c.logger.Warn("Score cache lookup failed", zap.String("key", key), zap.Error(err))
		c.metrics.RecordCounter(ports.MetricCacheRequests, 1, map[string]string{"result": "error"})
		return Report{}, false
	case !ok:
		c.metrics.RecordCounter(ports.MetricCacheRequests, 1, map[string]string{"result": "miss"})
		return Report{}, false
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		c.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		if derr := c.store.Delete(ctx, key); derr != nil {
			c.logger.Warn("Failed to delete cache entry", zap.String("key", key), zap.Error(derr))
		}
		c.metrics.RecordCounter(ports.MetricCacheRequests, 1, map[string]string{"result": "error"})
		return Report{}, false
	}
	c.metrics.RecordCounter(ports.MetricCacheRequests, 1, map[string]string{"result": "hit"})
	return r, true
}

package application

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ahrav/go-essay-judge/infrastructure/cache"
	"github.com/ahrav/go-essay-judge/infrastructure/scorers"
	"github.com/ahrav/go-essay-judge/infrastructure/text"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.Tokenizer.Mode = "naive"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "essays.db")
	return cfg
}

// TestBootstrap_MinimalCapabilities builds a working engine with no grammar
// backend and reports the fallbacks it took.
func TestBootstrap_MinimalCapabilities(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tokenizer.StopwordsFile = filepath.Join(t.TempDir(), "missing.txt")

	core, logs := observer.New(zap.WarnLevel)
	reg := prometheus.NewRegistry()
	rt, err := Bootstrap(context.Background(), cfg, zap.New(core), reg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	caps := rt.Engine.Capabilities()
	assert.Equal(t, text.Fallback().Digest(), caps.Stopwords)
	assert.Equal(t, scorers.DefaultConfigs().Digest(), caps.ScorerConfig)
	assert.Equal(t,
		"tokenizer=naive;similarity=true;grammar=none;stopwords="+caps.Stopwords+";scorers="+caps.ScorerConfig,
		caps.Fingerprint())
	assert.IsType(t, &CachedEvaluator{}, rt.Evaluator)
	assert.Equal(t, 1, logs.FilterMessage("Stopword list unavailable, using fallback list").Len())

	got, err := rt.Evaluator.Evaluate(context.Background(), band("Climate Change Effects", climateEssay()))
	require.NoError(t, err)
	assert.Equal(t, 75.0, got.Grammar)
	assert.Equal(t, 95.0, got.Structure)
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP essayjudge_evaluations_total Essay evaluations by outcome.
# TYPE essayjudge_evaluations_total counter
essayjudge_evaluations_total{status="ok"} 1
`), "essayjudge_evaluations_total"))
}

// TestBootstrap_LanguageTool wires the LanguageTool backend through the
// middleware chain.
func TestBootstrap_LanguageTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matches":[{"message":"typo","rule":{"id":"X","category":{"id":"TYPOS"}}}]}`))
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(t)
	cfg.Grammar.Backend = "languagetool"
	cfg.Grammar.Endpoint = srv.URL + "/v2/check"
	cfg.Cache.Backend = CacheNone

	rt, err := Bootstrap(context.Background(), cfg, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	assert.Same(t, rt.Engine, rt.Evaluator)

	got, err := rt.Evaluator.Evaluate(context.Background(), band("Climate Change Effects", climateEssay()))
	require.NoError(t, err)
	// One issue in 300 words costs 1000/300 points.
	assert.Equal(t, 96.67, got.Grammar)
}

// TestBootstrap_UnusableGrammarBackend starts without grammar checking when
// the backend cannot be built.
func TestBootstrap_UnusableGrammarBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Grammar.Backend = "openai"
	cfg.Grammar.APIKey = ""

	rt, err := Bootstrap(context.Background(), cfg, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	assert.Empty(t, rt.Engine.Capabilities().GrammarBackend)
}

// TestBootstrap_InvalidScorerFile fails on a bad scorer configuration.
func TestBootstrap_InvalidScorerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scorers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("structure:\n  length_points: 500\n"), 0o600))

	cfg := testConfig(t)
	cfg.ScorersFile = path
	_, err := Bootstrap(context.Background(), cfg, nil, prometheus.NewRegistry())
	assert.Error(t, err)
}

// TestRuntime_OpenStore opens the configured database and closes it with
// the runtime.
func TestRuntime_OpenStore(t *testing.T) {
	cfg := testConfig(t)
	rt, err := Bootstrap(context.Background(), cfg, nil, prometheus.NewRegistry())
	require.NoError(t, err)

	repo, err := rt.OpenStore(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, repo)
	assert.NoError(t, rt.Close())
}

// TestBootstrap_SharedCacheSeparatesScorerSettings keeps engines with
// different scorer settings or stopword lists from reading each other's
// cached scores.
func TestBootstrap_SharedCacheSeparatesScorerSettings(t *testing.T) {
	scorerFile := filepath.Join(t.TempDir(), "scorers.yaml")
	require.NoError(t, os.WriteFile(scorerFile, []byte("grammar:\n  unavailable_score: 10\n"), 0o600))
	stopwordsFile := filepath.Join(t.TempDir(), "stopwords.txt")
	require.NoError(t, os.WriteFile(stopwordsFile, []byte("the\nand\n"), 0o600))

	build := func(mutate func(*Config)) *Engine {
		cfg := testConfig(t)
		cfg.Cache.Backend = CacheNone
		mutate(&cfg)
		rt, err := Bootstrap(context.Background(), cfg, nil, prometheus.NewRegistry())
		require.NoError(t, err)
		t.Cleanup(func() { _ = rt.Close() })
		return rt.Engine
	}
	defaults := build(func(*Config) {})
	lenient := build(func(c *Config) { c.ScorersFile = scorerFile })
	custom := build(func(c *Config) { c.Tokenizer.StopwordsFile = stopwordsFile })

	assert.NotEqual(t, defaults.Capabilities().Fingerprint(), lenient.Capabilities().Fingerprint())
	assert.NotEqual(t, defaults.Capabilities().Fingerprint(), custom.Capabilities().Fingerprint())

	store := cache.NewMemoryStore(0)
	in := band("Climate Change Effects", climateEssay())

	first, err := NewCachedEvaluator(defaults, store, 0, nil, nil).Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 75.0, first.Grammar)

	direct, err := lenient.Evaluate(context.Background(), in)
	require.NoError(t, err)
	cached, err := NewCachedEvaluator(lenient, store, 0, nil, nil).Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 10.0, cached.Grammar)
	assert.Equal(t, direct, cached)
	assert.Equal(t, 2, store.Len())
}

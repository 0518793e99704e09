package application

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-essay-judge/infrastructure/scorers"
	"github.com/ahrav/go-essay-judge/infrastructure/text"
	"github.com/ahrav/go-essay-judge/internal/domain"
	"github.com/ahrav/go-essay-judge/internal/ports"
)

// stubScorer returns a fixed result, error, or panic for one criterion.
type stubScorer struct {
	criterion domain.Criterion
	result    ports.ScoreResult
	err       error
	panicWith any
	delay     time.Duration
	calls     atomic.Int32
}

func (s *stubScorer) Criterion() domain.Criterion { return s.criterion }

func (s *stubScorer) Score(ctx context.Context, _ domain.EvaluationInput) (ports.ScoreResult, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ports.ScoreResult{}, ctx.Err()
		}
	}
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	return s.result, s.err
}

// stubScorers returns one stub per criterion, each scoring value.
func stubScorers(value float64) map[domain.Criterion]*stubScorer {
	out := make(map[domain.Criterion]*stubScorer, len(domain.Criteria))
	for _, c := range domain.Criteria {
		out[c] = &stubScorer{criterion: c, result: ports.Scored(value)}
	}
	return out
}

func asScorers(stubs map[domain.Criterion]*stubScorer) []ports.Scorer {
	out := make([]ports.Scorer, 0, len(stubs))
	for _, c := range domain.Criteria {
		out = append(out, stubs[c])
	}
	return out
}

// recordingMetrics keeps counters and histogram observations by metric name
// and a "criterion", "status" or "result" label.
type recordingMetrics struct {
	mu         sync.Mutex
	counters   map[string]float64
	histograms map[string][]float64
	latencies  int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		counters:   make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func metricKey(metric string, labels map[string]string) string {
	for _, k := range []string{"criterion", "status", "result"} {
		if v, ok := labels[k]; ok {
			return metric + ":" + v
		}
	}
	return metric
}

func (m *recordingMetrics) RecordLatency(string, time.Duration, map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies++
}

func (m *recordingMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[metricKey(metric, labels)] += value
}

func (m *recordingMetrics) RecordGauge(string, float64, map[string]string) {}

func (m *recordingMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := metricKey(metric, labels)
	m.histograms[k] = append(m.histograms[k], value)
}

func (m *recordingMetrics) counter(key string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

// newScoringEngine builds an engine from the real scorers with the naive
// tokenizer. checker may be nil.
func newScoringEngine(t *testing.T, checker ports.GrammarChecker) *Engine {
	t.Helper()
	tok := text.NewNaiveTokenizer()
	sw := text.EnglishStopwords()
	cfg := scorers.DefaultConfigs()

	relevance, err := scorers.NewRelevanceScorer(cfg.Relevance, tok, sw)
	require.NoError(t, err)
	cohesion, err := scorers.NewCohesionScorer(cfg.Cohesion, tok, text.NewTFIDF(sw))
	require.NoError(t, err)
	gram, err := scorers.NewGrammarScorer(cfg.Grammar, tok, checker)
	require.NoError(t, err)
	structure, err := scorers.NewStructureScorer(cfg.Structure, tok)
	require.NoError(t, err)

	caps := Capabilities{TokenizerMode: tok.Mode(), Similarity: true}
	if checker != nil {
		caps.GrammarBackend = checker.Name()
	}
	engine, err := NewEngine([]ports.Scorer{relevance, cohesion, gram, structure}, WithCapabilities(caps))
	require.NoError(t, err)
	return engine
}

// climateEssay is 300 words in four paragraphs that echo the title
// "Climate Change Effects".
func climateEssay() string {
	sentence := "Climate change effects reach farms, coasts and cities while communities adapt their plans every year."
	paragraph := strings.TrimSpace(strings.Repeat(sentence+" ", 5))
	return strings.Join([]string{paragraph, paragraph, paragraph, paragraph}, "\n\n")
}

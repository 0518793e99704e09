package scorers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-essay-judge/infrastructure/text"
	"github.com/ahrav/go-essay-judge/internal/domain"
	"github.com/ahrav/go-essay-judge/internal/ports"
)

func newCohesion(t *testing.T, sim ports.SimilarityModel) *CohesionScorer {
	t.Helper()
	s, err := NewCohesionScorer(DefaultCohesionConfig(), text.NewNaiveTokenizer(), sim)
	require.NoError(t, err)
	return s
}

func cohesionInput(content string) domain.EvaluationInput {
	return domain.EvaluationInput{Title: "t", Content: content, MinWords: 1, MaxWords: 500}
}

// TestSimilarityCurve checks every band of the curve.
func TestSimilarityCurve(t *testing.T) {
	tests := []struct {
		avg  float64
		want float64
	}{
		{0, 50}, {0.05, 50}, {0.1, 70}, {0.15, 75},
		{0.2, 70}, {0.25, 75}, {0.3, 80}, {0.35, 85},
		{0.4, 90}, {0.5, 95}, {0.6, 100}, {1.0, 100},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, SimilarityCurve(tt.avg), 1e-9, "avg=%v", tt.avg)
	}
}

// TestCohesionFewSentences returns the neutral score on both paths.
func TestCohesionFewSentences(t *testing.T) {
	for _, sim := range []ports.SimilarityModel{nil, text.NewTFIDF(text.EnglishStopwords())} {
		s := newCohesion(t, sim)
		for _, content := range []string{"", "   ", "One sentence only", "However, therefore, thus."} {
			res, err := s.Score(context.Background(), cohesionInput(content))
			require.NoError(t, err)
			assert.Equal(t, 50.0, res.Value, "content=%q", content)
			assert.False(t, res.Degraded)
		}
	}
}

// TestCohesionHeuristic covers paragraph and transition credit.
func TestCohesionHeuristic(t *testing.T) {
	s := newCohesion(t, nil)

	tests := []struct {
		name    string
		content string
		want    float64
	}{
		{name: "nothing", content: "Cats sleep. Dogs run.", want: 50},
		{name: "one transition", content: "Cats sleep. However dogs run.", want: 55},
		{name: "two transitions", content: "Cats sleep. However dogs run. For example, birds fly.", want: 60},
		{
			name:    "paragraphs and three transitions",
			content: "Cats sleep.\n\nHowever dogs run.\n\nFor example, birds fly. Therefore fish swim.",
			want:    85,
		},
		{name: "case insensitive", content: "MOREOVER it rains. IN CONCLUSION it pours. NEVERTHELESS we go.", want: 65},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Heuristic(tt.content))
		})
	}
}

// TestCohesionDegradedPaths verifies the fallback is used without a model
// and when the model fails.
func TestCohesionDegradedPaths(t *testing.T) {
	content := "Cats sleep.\n\nHowever dogs run.\n\nFor example, birds fly. Therefore fish swim."

	res, err := newCohesion(t, nil).Score(context.Background(), cohesionInput(content))
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, 85.0, res.Value)
	assert.Contains(t, res.Reason, "unavailable")

	res, err = newCohesion(t, stubSimilarity{err: errors.New("boom")}).Score(context.Background(), cohesionInput(content))
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, 85.0, res.Value)
	assert.Contains(t, res.Reason, "boom")

	res, err = newCohesion(t, text.NewTFIDF(text.EnglishStopwords())).Score(context.Background(), cohesionInput("It is. It was."))
	require.NoError(t, err)
	assert.True(t, res.Degraded, "empty vocabulary falls back")
}

// TestCohesionSimilarityPath averages consecutive similarities through the curve.
func TestCohesionSimilarityPath(t *testing.T) {
	res, err := newCohesion(t, stubSimilarity{sims: []float64{0.2, 0.4}}).Score(
		context.Background(), cohesionInput("One. Two. Three."))
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.InDelta(t, 80.0, res.Value, 1e-9)

	s := newCohesion(t, text.NewTFIDF(text.EnglishStopwords()))
	res, err = s.Score(context.Background(), cohesionInput(
		"Solar panels convert sunlight into power. Solar panels on roofs convert sunlight cheaply. Cheap solar power helps households."))
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Greater(t, res.Value, 50.0)
	assert.LessOrEqual(t, res.Value, 100.0)
}

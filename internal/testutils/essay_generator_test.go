package testutils

import (
	"bytes"
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-essay-judge/infrastructure/grammar"
	"github.com/ahrav/go-essay-judge/infrastructure/scorers"
	"github.com/ahrav/go-essay-judge/infrastructure/text"
	"github.com/ahrav/go-essay-judge/internal/application"
	"github.com/ahrav/go-essay-judge/internal/domain"
	"github.com/ahrav/go-essay-judge/internal/ports"
)

// TestGenerateSampleEssays is reproducible for a fixed seed.
func TestGenerateSampleEssays(t *testing.T) {
	a := GenerateSampleEssays(30, 42)
	b := GenerateSampleEssays(30, 42)

	require.Len(t, a, 30)
	assert.Equal(t, a, b)

	stats := ComputeStatistics(a)
	assert.Equal(t, 30, stats.Total)
	assert.Len(t, stats.SubjectCount, len(Subjects))
	assert.Positive(t, stats.AvgWords)
}

// TestGenerateEssay_Profiles shapes word and paragraph counts per profile.
func TestGenerateEssay_Profiles(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	subject := Subjects[0]

	tests := []struct {
		profile    Profile
		minWords   int
		maxWords   int
		paragraphs int
	}{
		{profile: ProfileStrong, minWords: 300, maxWords: 400, paragraphs: 4},
		{profile: ProfileShort, minWords: 60, maxWords: 80, paragraphs: 1},
		{profile: ProfileRambling, minWords: 900, maxWords: 920, paragraphs: 1},
		{profile: ProfileOffTopic, minWords: 300, maxWords: 340, paragraphs: 3},
		{profile: ProfileErrors, minWords: 300, maxWords: 400, paragraphs: 4},
		{profile: ProfileEmpty, minWords: 0, maxWords: 0, paragraphs: 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.profile), func(t *testing.T) {
			e := GenerateEssay(rng, 1, subject, tt.profile)
			words := domain.WordCount(e.Content)
			assert.GreaterOrEqual(t, words, tt.minWords)
			assert.LessOrEqual(t, words, tt.maxWords)
			assert.Len(t, text.SplitParagraphs(e.Content), tt.paragraphs)
		})
	}
}

// TestSaveBatch writes a batch the CLI can decode.
func TestSaveBatch(t *testing.T) {
	essays := GenerateSampleEssays(12, 3)
	path := filepath.Join(t.TempDir(), "nested", "batch.yaml")

	require.NoError(t, SaveBatch(ToBatch("Smoke", essays, 250, 500), path))

	b, err := application.LoadBatchFile(path)
	require.NoError(t, err)
	require.Len(t, b.Essays, len(essays))
	for i, e := range essays {
		assert.Equal(t, e.ID, b.Essays[i].ID)
		assert.Equal(t, e.Content, b.Essays[i].Content)
		assert.Equal(t, 500, b.Input(i).MaxWords)
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBatch(&buf, ToBatch("Smoke", essays[:1], 0, 0)))
	assert.Contains(t, buf.String(), "competition: Smoke")
}

// TestProfiles_ScoreOrdering ranks a strong essay above weaker profiles on
// the same subject.
func TestProfiles_ScoreOrdering(t *testing.T) {
	tok := text.NewNaiveTokenizer()
	sw := text.EnglishStopwords()
	cfg := scorers.DefaultConfigs()
	relevance, err := scorers.NewRelevanceScorer(cfg.Relevance, tok, sw)
	require.NoError(t, err)
	cohesion, err := scorers.NewCohesionScorer(cfg.Cohesion, tok, text.NewTFIDF(sw))
	require.NoError(t, err)
	gram, err := scorers.NewGrammarScorer(cfg.Grammar, tok, grammar.NewMockChecker(1))
	require.NoError(t, err)
	structure, err := scorers.NewStructureScorer(cfg.Structure, tok)
	require.NoError(t, err)
	engine, err := application.NewEngine([]ports.Scorer{relevance, cohesion, gram, structure})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(11))
	subject := Subjects[1]
	score := func(p Profile) domain.ScoreBreakdown {
		e := GenerateEssay(rng, 0, subject, p)
		got, err := engine.Evaluate(context.Background(), domain.EvaluationInput{
			Title: subject.Title, Content: e.Content, Topic: subject.Topic, MinWords: 250, MaxWords: 500,
		})
		require.NoError(t, err)
		return got
	}

	strong := score(ProfileStrong)
	assert.Equal(t, 95.0, strong.Structure)
	for _, p := range []Profile{ProfileShort, ProfileRambling, ProfileEmpty} {
		assert.Greater(t, strong.Total, score(p).Total, p)
	}
	assert.Greater(t, strong.Relevance, score(ProfileOffTopic).Relevance)
}

package scorers

import (
	"context"
	"strings"

	"github.com/ahrav/go-essay-judge/infrastructure/text"
)

// stubChecker returns a fixed issue count or error.
type stubChecker struct {
	issues int
	err    error
	calls  int
}

func (s *stubChecker) Name() string { return "stub" }

func (s *stubChecker) CheckErrors(context.Context, string) (int, error) {
	s.calls++
	return s.issues, s.err
}

// stubSimilarity returns fixed similarities or an error.
type stubSimilarity struct {
	sims []float64
	err  error
}

func (s stubSimilarity) ConsecutiveSimilarities([]string) ([]float64, error) { return s.sims, s.err }

// wordlessTokenizer finds sentences but never words.
type wordlessTokenizer struct{ text.NaiveTokenizer }

func (wordlessTokenizer) Words(string) []string { return nil }

// paragraphs builds n paragraphs of wordsEach words separated by blank lines.
func paragraphs(n, wordsEach int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = strings.TrimSpace(strings.Repeat("word ", wordsEach))
	}
	return strings.Join(parts, "\n\n")
}

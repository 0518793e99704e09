package text

import (
	"errors"
	"math"
	"regexp"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// ErrEmptyVocabulary is returned when no sentence contains a countable term.
var ErrEmptyVocabulary = errors.New("empty vocabulary: sentences contain only stopwords")

// termPattern matches runs of two or more letters, digits or underscores.
var termPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// TFIDF compares sentences with term-frequency/inverse-document-frequency
// vectors fitted on the sentence set being compared. IDF is smoothed,
// ln((1+n)/(1+df))+1, and vectors are L2-normalised, so cosine similarity
// is the dot product.
type TFIDF struct {
	stopwords Stopwords
}

var _ ports.SimilarityModel = (*TFIDF)(nil)

// NewTFIDF returns a similarity model that ignores stopwords.
func NewTFIDF(stopwords Stopwords) *TFIDF {
	return &TFIDF{stopwords: stopwords}
}

// ConsecutiveSimilarities returns the cosine similarity of each adjacent
// sentence pair. Fewer than two sentences yields nil.
func (m *TFIDF) ConsecutiveSimilarities(sentences []string) ([]float64, error) {
	if len(sentences) < 2 {
		return nil, nil
	}
	vectors, err := m.fit(sentences)
	if err != nil {
		return nil, err
	}
	sims := make([]float64, len(vectors)-1)
	for i := 0; i < len(vectors)-1; i++ {
		sims[i] = Cosine(vectors[i], vectors[i+1])
	}
	return sims, nil
}

// fit builds one normalised vector per sentence.
func (m *TFIDF) fit(sentences []string) ([]map[string]float64, error) {
	counts := make([]map[string]float64, len(sentences))
	df := make(map[string]int)

	for i, s := range sentences {
		tf := make(map[string]float64)
		for _, term := range termPattern.FindAllString(Lower(s), -1) {
			if m.stopwords.Contains(term) {
				continue
			}
			tf[term]++
		}
		for term := range tf {
			df[term]++
		}
		counts[i] = tf
	}
	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	n := float64(len(sentences))
	for _, tf := range counts {
		var norm float64
		for term, c := range tf {
			w := c * (math.Log((1+n)/(1+float64(df[term]))) + 1)
			tf[term] = w
			norm += w * w
		}
		if norm == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		for term := range tf {
			tf[term] /= norm
		}
	}
	return counts, nil
}

// Cosine returns the cosine similarity of two sparse vectors, clamped to
// [0,1]. A zero vector has similarity 0 with everything.
func Cosine(a, b map[string]float64) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var dot, na, nb float64
	for term, v := range a {
		dot += v * b[term]
	}
	for _, v := range a {
		na += v * v
	}
	for _, v := range b {
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(0, math.Min(sim, 1))
}

package text

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"slices"
	"strings"
)

//go:embed stopwords_en.txt
var englishStopwordsData string

// FallbackStopwords is used when a configured stopword file cannot be read.
var FallbackStopwords = []string{
	"a", "an", "the", "and", "or", "but", "in",
	"on", "at", "to", "for", "of", "with", "by",
}

// Stopwords is an immutable set of lowercase words ignored by keyword
// extraction and similarity vectors.
type Stopwords struct {
	set map[string]struct{}
}

// NewStopwords builds a set from words, lowercasing and trimming each.
func NewStopwords(words []string) Stopwords {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		set[w] = struct{}{}
	}
	return Stopwords{set: set}
}

// EnglishStopwords returns the built-in English list.
func EnglishStopwords() Stopwords {
	return NewStopwords(strings.Split(englishStopwordsData, "\n"))
}

// Fallback returns the small fixed list.
func Fallback() Stopwords { return NewStopwords(FallbackStopwords) }

// LoadStopwords reads one word per line from path. Blank lines and lines
// starting with '#' are skipped.
func LoadStopwords(path string) (Stopwords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Stopwords{}, fmt.Errorf("read stopwords %q: %w", path, err)
	}
	sw := NewStopwords(strings.Split(string(data), "\n"))
	if sw.Len() == 0 {
		return Stopwords{}, fmt.Errorf("stopwords %q: no words found", path)
	}
	return sw, nil
}

// Contains reports whether w, already lowercased, is a stopword.
func (s Stopwords) Contains(w string) bool {
	_, ok := s.set[w]
	return ok
}

// Len returns the number of words in the set.
func (s Stopwords) Len() int { return len(s.set) }

// Digest identifies the word set. Lists with the same words in any order
// share a digest.
func (s Stopwords) Digest() string {
	words := make([]string, 0, len(s.set))
	for w := range s.set {
		words = append(words, w)
	}
	slices.Sort(words)
	sum := sha256.Sum256([]byte(strings.Join(words, "\n")))
	return hex.EncodeToString(sum[:8])
}

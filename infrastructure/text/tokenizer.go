// Package text splits essays into words, sentences, and paragraphs and
// measures lexical similarity between sentences.
//
// Two tokenizers are provided. The linguistic tokenizer uses the prose
// boundary models for sentences and words. The naive tokenizer splits
// sentences on runs of terminal punctuation and words on whitespace and has
// no external resources, so it is always available as the fallback.
package text

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// Tokenizer modes.
const (
	ModeLinguistic = "linguistic"
	ModeNaive      = "naive"
)

var (
	sentenceBreaks  = regexp.MustCompile(`[.!?]+`)
	paragraphBreaks = regexp.MustCompile(`\n[ \t]*\n`)
	lineEndings     = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// New returns the tokenizer for mode. An empty mode selects linguistic.
func New(mode string) (ports.Tokenizer, error) {
	switch mode {
	case ModeLinguistic, "":
		return NewLinguisticTokenizer()
	case ModeNaive:
		return NewNaiveTokenizer(), nil
	default:
		return nil, fmt.Errorf("unknown tokenizer mode %q", mode)
	}
}

// Normalize composes text to NFC and folds CR and CRLF line endings to LF.
func Normalize(s string) string {
	return lineEndings.Replace(norm.NFC.String(s))
}

// Lower lowercases s with Unicode case mapping. A Caser holds state, so one
// is created per call.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// SplitParagraphs returns the non-empty, trimmed blocks of s separated by
// blank lines.
func SplitParagraphs(s string) []string {
	s = Normalize(s)
	var out []string
	for _, p := range paragraphBreaks.Split(s, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NaiveTokenizer splits on punctuation runs and whitespace.
type NaiveTokenizer struct{}

var _ ports.Tokenizer = NaiveTokenizer{}

// NewNaiveTokenizer returns the resource-free tokenizer.
func NewNaiveTokenizer() NaiveTokenizer { return NaiveTokenizer{} }

// Mode returns ModeNaive.
func (NaiveTokenizer) Mode() string { return ModeNaive }

// Words lowercases s and splits it on whitespace.
func (NaiveTokenizer) Words(s string) []string {
	return strings.Fields(Lower(Normalize(s)))
}

// Sentences splits s on runs of '.', '!' and '?'.
func (NaiveTokenizer) Sentences(s string) []string {
	var out []string
	for _, sent := range sentenceBreaks.Split(Normalize(s), -1) {
		if sent = strings.TrimSpace(sent); sent != "" {
			out = append(out, sent)
		}
	}
	return out
}

// Paragraphs splits s on blank lines.
func (NaiveTokenizer) Paragraphs(s string) []string { return SplitParagraphs(s) }

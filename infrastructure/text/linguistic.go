package text

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// LinguisticTokenizer segments text with the prose sentence and word
// boundary models. A document the models cannot process is split naively.
type LinguisticTokenizer struct {
	naive NaiveTokenizer
}

var _ ports.Tokenizer = (*LinguisticTokenizer)(nil)

// NewLinguisticTokenizer loads the boundary models and verifies they work
// on a sample document.
func NewLinguisticTokenizer() (*LinguisticTokenizer, error) {
	t := &LinguisticTokenizer{}
	doc, err := t.parse("The models load. They split text.")
	if err != nil {
		return nil, fmt.Errorf("linguistic tokenizer unavailable: %w", err)
	}
	if len(doc.Sentences()) != 2 {
		return nil, fmt.Errorf("linguistic tokenizer unavailable: sample produced %d sentences", len(doc.Sentences()))
	}
	return t, nil
}

// Mode returns ModeLinguistic.
func (t *LinguisticTokenizer) Mode() string { return ModeLinguistic }

// Words returns the lowercased word tokens of s. Punctuation tokens are kept.
func (t *LinguisticTokenizer) Words(s string) []string {
	s = Lower(Normalize(s))
	if strings.TrimSpace(s) == "" {
		return nil
	}
	doc, err := t.parse(s)
	if err != nil {
		return t.naive.Words(s)
	}
	tokens := doc.Tokens()
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if w := strings.TrimSpace(tok.Text); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// Sentences returns the trimmed sentences of s.
func (t *LinguisticTokenizer) Sentences(s string) []string {
	s = Normalize(s)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	doc, err := t.parse(s)
	if err != nil {
		return t.naive.Sentences(s)
	}
	var out []string
	for _, sent := range doc.Sentences() {
		if txt := strings.TrimSpace(sent.Text); txt != "" {
			out = append(out, txt)
		}
	}
	return out
}

// Paragraphs splits s on blank lines.
func (t *LinguisticTokenizer) Paragraphs(s string) []string { return SplitParagraphs(s) }

// parse runs segmentation and tokenization only. Panics inside the models
// are reported as errors.
func (t *LinguisticTokenizer) parse(s string) (doc *prose.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("prose panic: %v", r)
		}
	}()
	return prose.NewDocument(s,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
}

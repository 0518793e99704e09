package scorers

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-essay-judge/infrastructure/text"
	"github.com/ahrav/go-essay-judge/internal/domain"
	"github.com/ahrav/go-essay-judge/internal/ports"
)

// DefaultConnectors are short words kept as keywords despite their length.
var DefaultConnectors = []string{"if", "but", "yet", "so", "nor", "for", "as"}

// RelevanceConfig tunes keyword extraction and matching.
type RelevanceConfig struct {
	// MinKeywordLength is the shortest reference word kept as a keyword.
	MinKeywordLength int `yaml:"min_keyword_length" json:"min_keyword_length" validate:"min=1,max=32"`

	// MinPartialKeywordLength is the shortest keyword eligible for partial
	// matching against content words.
	MinPartialKeywordLength int `yaml:"min_partial_keyword_length" json:"min_partial_keyword_length" validate:"min=1,max=32"`

	// MinPartialWordLength is the shortest content word considered in a
	// partial match.
	MinPartialWordLength int `yaml:"min_partial_word_length" json:"min_partial_word_length" validate:"min=1,max=32"`

	// PartialCredit is added for a keyword matched only partially.
	PartialCredit float64 `yaml:"partial_credit" json:"partial_credit" validate:"gte=0,lte=1"`

	// PhraseBonus is added for each title phrase found verbatim in content.
	PhraseBonus float64 `yaml:"phrase_bonus" json:"phrase_bonus" validate:"gte=0"`

	// Floor is the score of an essay with keywords but no matches.
	Floor float64 `yaml:"floor" json:"floor" validate:"gte=0,lte=100"`

	// Connectors are short words kept as keywords when they appear in the
	// reference text.
	Connectors []string `yaml:"connectors" json:"connectors"`
}

// DefaultRelevanceConfig returns the calibrated relevance settings.
func DefaultRelevanceConfig() RelevanceConfig {
	return RelevanceConfig{
		MinKeywordLength:        4,
		MinPartialKeywordLength: 5,
		MinPartialWordLength:    4,
		PartialCredit:           0.5,
		PhraseBonus:             2,
		Floor:                   30,
		Connectors:              append([]string(nil), DefaultConnectors...),
	}
}

// RelevanceScorer measures keyword and phrase overlap between the title,
// joined with the topic when one is set, and the essay body.
type RelevanceScorer struct {
	config     RelevanceConfig
	tokenizer  ports.Tokenizer
	stopwords  text.Stopwords
	connectors map[string]struct{}
	tracer     trace.Tracer
}

var _ ports.Scorer = (*RelevanceScorer)(nil)

// NewRelevanceScorer validates config and builds the scorer.
func NewRelevanceScorer(config RelevanceConfig, tokenizer ports.Tokenizer, stopwords text.Stopwords) (*RelevanceScorer, error) {
	if tokenizer == nil {
		return nil, ErrNilTokenizer
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid relevance configuration: %w", err)
	}
	connectors := make(map[string]struct{}, len(config.Connectors))
	for _, c := range config.Connectors {
		connectors[text.Lower(c)] = struct{}{}
	}
	return &RelevanceScorer{
		config:     config,
		tokenizer:  tokenizer,
		stopwords:  stopwords,
		connectors: connectors,
		tracer:     otel.Tracer("relevance-scorer"),
	}, nil
}

// Criterion returns domain.CriterionRelevance.
func (s *RelevanceScorer) Criterion() domain.Criterion { return domain.CriterionRelevance }

// Score returns 50 when the title or content is empty or the reference text
// has no keywords. Otherwise each keyword found in the content adds 1, a
// partial match adds PartialCredit, each title phrase found adds
// PhraseBonus, and the score is matches/keywords*50+30 bounded to
// [Floor, 100].
func (s *RelevanceScorer) Score(ctx context.Context, in domain.EvaluationInput) (ports.ScoreResult, error) {
	_, span := s.tracer.Start(ctx, "RelevanceScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.criterion", string(domain.CriterionRelevance)),
			attribute.Bool("input.has_topic", strings.TrimSpace(in.Topic) != ""),
		),
	)
	defer span.End()

	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		span.SetAttributes(attribute.String("eval.outcome", "insufficient_input"))
		return ports.Scored(domain.NeutralScore), nil
	}

	keywords := s.Keywords(in.ReferenceText())
	if len(keywords) == 0 {
		span.SetAttributes(attribute.String("eval.outcome", "no_keywords"))
		return ports.Scored(domain.NeutralScore), nil
	}

	content := text.Lower(text.Normalize(in.Content))
	contentWords := s.tokenizer.Words(in.Content)

	var matches float64
	for _, kw := range keywords {
		if strings.Contains(content, kw) {
			matches++
			continue
		}
		if utf8.RuneCountInString(kw) >= s.config.MinPartialKeywordLength && s.partialMatch(kw, contentWords) {
			matches += s.config.PartialCredit
		}
	}

	phraseHits := 0
	for _, phrase := range s.Phrases(in.Title) {
		if strings.Contains(content, phrase) {
			phraseHits++
			matches += s.config.PhraseBonus
		}
	}

	score := s.config.Floor
	if matches > 0 {
		score = math.Min(matches/float64(len(keywords))*50+30, 100)
		score = math.Max(s.config.Floor, score)
	}

	span.SetAttributes(
		attribute.Int("eval.keywords", len(keywords)),
		attribute.Int("eval.phrase_hits", phraseHits),
		attribute.Float64("eval.matches", matches),
		attribute.Float64("eval.score", score),
	)
	return ports.Scored(score), nil
}

// Keywords extracts the deduplicated keywords of reference in first-seen
// order: alphanumeric words of at least MinKeywordLength runes that are not
// stopwords, plus any connector words present.
func (s *RelevanceScorer) Keywords(reference string) []string {
	words := s.tokenizer.Words(reference)
	seen := make(map[string]struct{}, len(words))
	var keywords []string
	add := func(w string) {
		if _, ok := seen[w]; ok {
			return
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}

	for _, w := range words {
		if isAlnum(w) && utf8.RuneCountInString(w) >= s.config.MinKeywordLength && !s.stopwords.Contains(w) {
			add(w)
		}
	}
	for _, w := range words {
		if _, ok := s.connectors[w]; ok {
			add(w)
		}
	}
	return keywords
}

// Phrases returns the distinct two- and three-word sequences of title.
func (s *RelevanceScorer) Phrases(title string) []string {
	words := s.tokenizer.Words(title)
	seen := make(map[string]struct{})
	var phrases []string
	for n := 2; n <= 3; n++ {
		for i := 0; i+n <= len(words); i++ {
			p := strings.Join(words[i:i+n], " ")
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			phrases = append(phrases, p)
		}
	}
	return phrases
}

// partialMatch reports whether some sufficiently long content word contains
// kw or is contained in it.
func (s *RelevanceScorer) partialMatch(kw string, contentWords []string) bool {
	for _, w := range contentWords {
		if utf8.RuneCountInString(w) < s.config.MinPartialWordLength {
			continue
		}
		if strings.Contains(w, kw) || strings.Contains(kw, w) {
			return true
		}
	}
	return false
}

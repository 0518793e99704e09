package domain

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var terminatorRuns = regexp.MustCompile(`[.!?]+`)

// Features is a fixed set of surface measurements of an essay. They are
// reported alongside scores and never feed into them.
type Features struct {
	WordCount       int     `json:"word_count"`
	ParagraphCount  int     `json:"paragraph_count"`
	SentenceCount   int     `json:"sentence_count"`
	AvgWordLength   float64 `json:"avg_word_length"`
	UniqueWordRatio float64 `json:"unique_word_ratio"`
	TitleLength     int     `json:"title_length"`
	HasQuestion     bool    `json:"has_question"`
	HasNumbers      bool    `json:"has_numbers"`
}

// ExtractFeatures measures title and content.
func ExtractFeatures(title, content string) Features {
	words := strings.Fields(content)
	f := Features{
		WordCount:     len(words),
		SentenceCount: len(terminatorRuns.FindAllStringIndex(content, -1)),
		TitleLength:   utf8.RuneCountInString(title),
		HasQuestion:   strings.Contains(content, "?"),
		HasNumbers:    strings.IndexFunc(content, unicode.IsDigit) >= 0,
	}

	for _, p := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(p) != "" {
			f.ParagraphCount++
		}
	}

	if len(words) == 0 {
		return f
	}

	unique := make(map[string]struct{}, len(words))
	runes := 0
	for _, w := range words {
		runes += utf8.RuneCountInString(w)
		unique[strings.ToLower(w)] = struct{}{}
	}
	f.AvgWordLength = float64(runes) / float64(len(words))
	f.UniqueWordRatio = float64(len(unique)) / float64(len(words))
	return f
}

// Package testutils generates synthetic essays for tests and smoke runs.
// The essays are not real writing; they are shaped to land in predictable
// score ranges.
package testutils

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-essay-judge/internal/application"
	"github.com/ahrav/go-essay-judge/internal/domain"
)

// Profile describes the shape of a generated essay.
type Profile string

// Essay profiles.
const (
	ProfileStrong   Profile = "strong"
	ProfileShort    Profile = "short"
	ProfileRambling Profile = "rambling"
	ProfileOffTopic Profile = "off_topic"
	ProfileErrors   Profile = "errors"
	ProfileEmpty    Profile = "empty"
)

// Profiles lists every profile in generation order.
var Profiles = []Profile{ProfileStrong, ProfileShort, ProfileRambling, ProfileOffTopic, ProfileErrors, ProfileEmpty}

// SampleEssay is one generated essay.
type SampleEssay struct {
	ID      string
	Author  string
	Subject Subject
	Profile Profile
	Content string
}

// GenerateSampleEssays creates size essays cycling through subjects with a
// random profile each. The seed makes the output reproducible.
func GenerateSampleEssays(size int, seed int64) []SampleEssay {
	rng := rand.New(rand.NewSource(seed))
	essays := make([]SampleEssay, 0, size)
	for i := range size {
		subject := Subjects[i%len(Subjects)]
		profile := Profiles[rng.Intn(len(Profiles))]
		essays = append(essays, GenerateEssay(rng, i, subject, profile))
	}
	return essays
}

// GenerateEssay writes one essay on subject with the given profile.
func GenerateEssay(rng *rand.Rand, index int, subject Subject, profile Profile) SampleEssay {
	e := SampleEssay{
		ID:      fmt.Sprintf("essay-%04d", index),
		Author:  fmt.Sprintf("author-%04d", index),
		Subject: subject,
		Profile: profile,
	}

	switch profile {
	case ProfileStrong:
		e.Content = compose(rng, subject.Sentences, 4, 75, true)
	case ProfileShort:
		e.Content = compose(rng, subject.Sentences, 1, 60, false)
	case ProfileRambling:
		e.Content = compose(rng, subject.Sentences, 1, 900, false)
	case ProfileOffTopic:
		e.Content = compose(rng, OffTopicSentences, 3, 100, false)
	case ProfileErrors:
		e.Content = misspell(compose(rng, subject.Sentences, 4, 75, true))
	case ProfileEmpty:
		e.Content = ""
	}
	return e
}

// compose builds paragraphs of at least wordsEach words from sentences,
// optionally opening every paragraph after the first with a transition.
func compose(rng *rand.Rand, sentences []string, paragraphs, wordsEach int, transitions bool) string {
	parts := make([]string, 0, paragraphs)
	for p := range paragraphs {
		var b strings.Builder
		words := 0
		if transitions && p > 0 {
			t := Transitions[rng.Intn(len(Transitions))]
			b.WriteString(t)
			words += domain.WordCount(t)
		}
		for words < wordsEach {
			s := sentences[rng.Intn(len(sentences))]
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(s)
			words += domain.WordCount(s)
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

func misspell(content string) string {
	for right, wrong := range Misspellings {
		content = strings.ReplaceAll(content, right, wrong)
	}
	return content
}

// Statistics summarises a generated set.
type Statistics struct {
	Total        int
	ProfileCount map[Profile]int
	SubjectCount map[string]int
	AvgWords     float64
}

// ComputeStatistics counts profiles and subjects and averages word counts.
func ComputeStatistics(essays []SampleEssay) Statistics {
	stats := Statistics{
		Total:        len(essays),
		ProfileCount: make(map[Profile]int),
		SubjectCount: make(map[string]int),
	}
	words := 0
	for _, e := range essays {
		stats.ProfileCount[e.Profile]++
		stats.SubjectCount[e.Subject.Title]++
		words += domain.WordCount(e.Content)
	}
	if len(essays) > 0 {
		stats.AvgWords = float64(words) / float64(len(essays))
	}
	return stats
}

// ToBatch converts essays into a batch with the given word band.
func ToBatch(name string, essays []SampleEssay, minWords, maxWords int) *application.Batch {
	b := &application.Batch{
		Competition: name,
		MinWords:    minWords,
		MaxWords:    maxWords,
		Essays:      make([]application.BatchEssay, 0, len(essays)),
	}
	for _, e := range essays {
		b.Essays = append(b.Essays, application.BatchEssay{
			ID:      e.ID,
			Author:  e.Author,
			Title:   e.Subject.Title,
			Content: e.Content,
			Topic:   e.Subject.Topic,
		})
	}
	return b
}

// WriteBatch encodes b as YAML.
func WriteBatch(w io.Writer, b *application.Batch) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}
	return enc.Close()
}

// SaveBatch writes b to path, creating parent directories.
func SaveBatch(b *application.Batch, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create batch file: %w", err)
	}
	if err := WriteBatch(f, b); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

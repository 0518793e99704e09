package application

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-essay-judge/internal/domain"
)

// Batch is a YAML file of essays scored together. Topic and the word band
// set at batch level apply to every essay that leaves them unset.
type Batch struct {
	Competition string       `yaml:"competition" validate:"omitempty,max=200"`
	Topic       string       `yaml:"topic"`
	MinWords    int          `yaml:"min_words" validate:"gte=0"`
	MaxWords    int          `yaml:"max_words" validate:"gte=0"`
	Essays      []BatchEssay `yaml:"essays" validate:"required,min=1,dive"`
}

// BatchEssay is one essay of a batch.
type BatchEssay struct {
	ID       string `yaml:"id" validate:"required"`
	Author   string `yaml:"author"`
	Title    string `yaml:"title"`
	Content  string `yaml:"content"`
	Topic    string `yaml:"topic"`
	MinWords int    `yaml:"min_words" validate:"gte=0"`
	MaxWords int    `yaml:"max_words" validate:"gte=0"`
}

// Input builds the evaluation input of essay i, resolving batch defaults
// and then the competition defaults.
func (b *Batch) Input(i int) domain.EvaluationInput {
	e := b.Essays[i]
	return domain.EvaluationInput{
		Title:    e.Title,
		Content:  e.Content,
		Topic:    firstNonEmpty(e.Topic, b.Topic),
		MinWords: firstPositive(e.MinWords, b.MinWords, domain.DefaultMinWords),
		MaxWords: firstPositive(e.MaxWords, b.MaxWords, domain.DefaultMaxWords),
	}
}

// LoadBatchFile reads and decodes a batch file.
func LoadBatchFile(path string) (*Batch, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return DecodeBatch(bytes.NewReader(data))
}

// DecodeBatch decodes a batch strictly: unknown fields, duplicate essay IDs
// and inverted word bands are errors.
func DecodeBatch(r io.Reader) (*Batch, error) {
	var b Batch
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	if err := validate.Struct(&b); err != nil {
		return nil, fmt.Errorf("struct validation failed: %w", err)
	}

	seen := make(map[string]struct{}, len(b.Essays))
	for i, e := range b.Essays {
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("duplicate essay ID %q", e.ID)
		}
		seen[e.ID] = struct{}{}
		if err := b.Input(i).Validate(); err != nil {
			return nil, fmt.Errorf("essay %q: %w", e.ID, err)
		}
	}
	return &b, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

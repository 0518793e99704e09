// Package scorers implements the four criterion scorers of the essay
// evaluation engine. Each scorer is deterministic given its capabilities and
// reports a documented neutral or default score when it lacks signal.
package scorers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Common errors returned by scorer constructors.
var (
	// ErrNilTokenizer is returned when a scorer that needs a tokenizer gets none.
	ErrNilTokenizer = errors.New("tokenizer cannot be nil")
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// Configs groups the tunables of all four scorers.
type Configs struct {
	Relevance RelevanceConfig `yaml:"relevance" json:"relevance"`
	Cohesion  CohesionConfig  `yaml:"cohesion" json:"cohesion"`
	Grammar   GrammarConfig   `yaml:"grammar" json:"grammar"`
	Structure StructureConfig `yaml:"structure" json:"structure"`
}

// DefaultConfigs returns the calibrated defaults of every scorer.
func DefaultConfigs() Configs {
	return Configs{
		Relevance: DefaultRelevanceConfig(),
		Cohesion:  DefaultCohesionConfig(),
		Grammar:   DefaultGrammarConfig(),
		Structure: DefaultStructureConfig(),
	}
}

// Validate checks every section.
func (c Configs) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid scorer configuration: %w", err)
	}
	return nil
}

// Digest identifies the settings. Configurations that score differently
// have different digests.
func (c Configs) Digest() string {
	data, err := json.Marshal(c)
	if err != nil {
		return "invalid"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// LoadConfigs decodes YAML over the defaults. Unknown fields are rejected.
func LoadConfigs(r io.Reader) (Configs, error) {
	cfg := DefaultConfigs()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Configs{}, fmt.Errorf("failed to decode scorer configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Configs{}, err
	}
	return cfg, nil
}

// isAlnum reports whether w is non-empty and made only of letters and digits.
func isAlnum(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

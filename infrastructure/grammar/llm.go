package grammar

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// DuplicateExcerptSimilarity is the Levenshtein similarity at or above which
// two reported excerpts count as one issue.
const DuplicateExcerptSimilarity = 0.9

const grammarSystemPrompt = `You are a meticulous copy editor. List every grammar, spelling, ` +
	`punctuation, and agreement error in the essay you are given. Do not report ` +
	`style preferences. Respond with JSON only, in the form ` +
	`{"issues":[{"excerpt":"<erroneous text>","message":"<short explanation>"}]}. ` +
	`Respond with {"issues":[]} if the essay has no errors.`

// CompletionOptions are the per-request settings passed to a Completer.
type CompletionOptions struct {
	System      string
	MaxTokens   int
	Temperature float64
	JSON        bool
}

// Completer sends one prompt to an LLM provider and returns the text reply.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
	Model() string
}

// CompleterFactory builds a Completer from backend configuration.
type CompleterFactory func(cfg Config) (Completer, error)

var (
	completerMu        sync.RWMutex
	completerFactories = map[string]CompleterFactory{}
)

// RegisterCompleter makes an LLM provider available under name.
func RegisterCompleter(name string, factory CompleterFactory) {
	completerMu.Lock()
	defer completerMu.Unlock()
	completerFactories[name] = factory
}

// NewCompleter builds the Completer registered for cfg.Backend.
func NewCompleter(cfg Config) (Completer, error) {
	completerMu.RLock()
	factory, ok := completerFactories[cfg.Backend]
	completerMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if cfg.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	return factory(cfg)
}

// Issue is one problem reported by an LLM backend.
type Issue struct {
	Excerpt string `json:"excerpt"`
	Message string `json:"message"`
}

// LLMChecker asks an LLM for a list of grammar issues and counts them after
// collapsing near-duplicate excerpts.
type LLMChecker struct {
	name       string
	completer  Completer
	maxTokens  int
	classifier ErrorClassifier
}

var _ ports.GrammarChecker = (*LLMChecker)(nil)

// NewLLMChecker wraps completer. name labels the backend.
func NewLLMChecker(name string, completer Completer) *LLMChecker {
	return &LLMChecker{
		name:       name,
		completer:  completer,
		maxTokens:  2048,
		classifier: ErrorClassifier{Backend: name},
	}
}

// Name returns the backend name.
func (c *LLMChecker) Name() string { return c.name }

// CheckErrors prompts the model and counts distinct issues.
func (c *LLMChecker) CheckErrors(ctx context.Context, text string) (int, error) {
	reply, err := c.completer.Complete(ctx, "Essay:\n\n"+text, CompletionOptions{
		System:      grammarSystemPrompt,
		MaxTokens:   c.maxTokens,
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		return 0, err
	}
	issues, err := ParseIssues(reply)
	if err != nil {
		return 0, c.classifier.InvalidResponse("%v", err)
	}
	return len(DedupeIssues(issues)), nil
}

// ParseIssues extracts the issue list from a model reply. Code fences and
// text around the JSON object are ignored.
func ParseIssues(reply string) ([]Issue, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in reply")
	}
	var payload struct {
		Issues *[]Issue `json:"issues"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("decode issues: %w", err)
	}
	if payload.Issues == nil {
		return nil, fmt.Errorf("reply has no issues field")
	}
	return *payload.Issues, nil
}

// DedupeIssues drops issues whose excerpt is nearly identical to an earlier
// one. Issues without an excerpt are always kept.
func DedupeIssues(issues []Issue) []Issue {
	kept := make([]Issue, 0, len(issues))
	var seen []string
	for _, is := range issues {
		ex := strings.ToLower(strings.TrimSpace(is.Excerpt))
		if ex == "" {
			kept = append(kept, is)
			continue
		}
		dup := false
		for _, s := range seen {
			if similarity(ex, s) >= DuplicateExcerptSimilarity {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen = append(seen, ex)
		kept = append(kept, is)
	}
	return kept
}

// similarity is 1 - distance/maxRunes.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

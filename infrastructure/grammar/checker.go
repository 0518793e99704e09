// Package grammar provides grammar-check backends for the grammar scorer
// and the middleware that bounds calls to them.
//
// Backends count issues in a text. LanguageTool is called over its HTTP
// API. LLM backends (OpenAI, Anthropic, Google) are prompted for a JSON list
// of issues. Every backend implements ports.GrammarChecker and can be wrapped
// with middleware for timeouts, retries, rate limiting, circuit breaking,
// metrics, and tracing:
//
//	checker, err := grammar.NewChecker(grammar.Config{
//	    Backend:  grammar.BackendLanguageTool,
//	    Endpoint: "http://localhost:8010/v2/check",
//	},
//	    grammar.TracingMiddleware(),
//	    grammar.MetricsMiddleware(collector),
//	    grammar.CircuitBreakerMiddleware(5, 30*time.Second),
//	    grammar.RetryMiddleware(2, 200*time.Millisecond, 2*time.Second),
//	    grammar.TimeoutMiddleware(10*time.Second),
//	)
package grammar

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// Backend names.
const (
	BackendLanguageTool = "languagetool"
	BackendOpenAI       = "openai"
	BackendAnthropic    = "anthropic"
	BackendGoogle       = "google"
)

// Config selects and configures a grammar-check backend.
type Config struct {
	// Backend is one of the Backend constants.
	Backend string

	// Endpoint is the LanguageTool check URL, or an optional base URL
	// override for LLM backends.
	Endpoint string

	// Language is the LanguageTool language code. Defaults to en-US.
	Language string

	// APIKey authenticates LLM backends.
	APIKey string

	// Model selects the LLM model. Each provider has a default.
	Model string

	// HTTPClient is used by HTTP backends. Defaults to a client with Timeout.
	HTTPClient *http.Client

	// Timeout bounds each HTTP request made by the backend.
	Timeout time.Duration
}

// Middleware wraps a GrammarChecker to add cross-cutting behavior.
type Middleware func(ports.GrammarChecker) ports.GrammarChecker

// Chain wraps checker so that the first middleware is the outermost.
func Chain(checker ports.GrammarChecker, middleware ...Middleware) ports.GrammarChecker {
	for i := len(middleware) - 1; i >= 0; i-- {
		checker = middleware[i](checker)
	}
	return checker
}

// NewChecker builds the configured backend and wraps it with middleware.
func NewChecker(cfg Config, middleware ...Middleware) (ports.GrammarChecker, error) {
	var (
		checker ports.GrammarChecker
		err     error
	)
	switch cfg.Backend {
	case BackendLanguageTool:
		checker, err = NewLanguageToolChecker(cfg)
	default:
		var completer Completer
		completer, err = NewCompleter(cfg)
		if err == nil {
			checker = NewLLMChecker(cfg.Backend, completer)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %q grammar checker: %w", cfg.Backend, err)
	}
	return Chain(checker, middleware...), nil
}

func httpClient(cfg Config) *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

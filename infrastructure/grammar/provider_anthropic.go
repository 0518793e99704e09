package grammar

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// AnthropicDefaultModel is used when Config.Model is empty.
const AnthropicDefaultModel = "claude-3-5-haiku-latest"

func init() {
	RegisterCompleter(BackendAnthropic, newAnthropicCompleter)
}

type anthropicCompleter struct {
	client     anthropic.Client
	model      string
	classifier ErrorClassifier
}

func newAnthropicCompleter(cfg Config) (Completer, error) {
	model := cfg.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	// Retries belong to RetryMiddleware.
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	if cfg.HTTPClient != nil || cfg.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(httpClient(cfg)))
	}

	return &anthropicCompleter{
		client:     anthropic.NewClient(opts...),
		model:      model,
		classifier: ErrorClassifier{Backend: BackendAnthropic},
	}, nil
}

func (p *anthropicCompleter) Model() string { return p.model }

func (p *anthropicCompleter) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(maxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(opts.Temperature),
	}
	if opts.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: opts.System}}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", p.handleError(err)
	}

	var reply strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			reply.WriteString(tb.Text)
		}
	}
	if reply.Len() == 0 {
		return "", ports.NewCheckerError(BackendAnthropic, ports.ErrInvalidResponse, 0, "no text blocks", ErrEmptyResponse)
	}
	return reply.String(), nil
}

func (p *anthropicCompleter) handleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.classifier.ClassifyContextError(err)
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		cerr := p.classifier.ClassifyHTTPError(apiErr.StatusCode, "request rejected", err)
		if apiErr.Response != nil {
			cerr.RetryAfter = retryAfter(apiErr.Response.Header)
		}
		return cerr
	}
	return p.classifier.ClassifyTransportError(err)
}

package grammar

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// OpenAIDefaultModel is used when Config.Model is empty.
const OpenAIDefaultModel = "gpt-4o-mini"

func init() {
	RegisterCompleter(BackendOpenAI, newOpenAICompleter)
}

type openAICompleter struct {
	client     *openai.Client
	model      string
	classifier ErrorClassifier
}

func newOpenAICompleter(cfg Config) (Completer, error) {
	model := cfg.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}
	if cfg.HTTPClient != nil || cfg.Timeout > 0 {
		clientConfig.HTTPClient = httpClient(cfg)
	}
	clientConfig.HTTPClient = retryHintDoer{next: clientConfig.HTTPClient}

	return &openAICompleter{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      model,
		classifier: ErrorClassifier{Backend: BackendOpenAI},
	}, nil
}

func (p *openAICompleter) Model() string { return p.model }

func (p *openAICompleter) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if opts.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	hint := &retryHint{}
	resp, err := p.client.CreateChatCompletion(context.WithValue(ctx, retryHintKey{}, hint), req)
	if err != nil {
		cerr := p.handleError(err)
		var checkerErr *ports.CheckerError
		if errors.As(cerr, &checkerErr) && checkerErr.RetryAfter == nil {
			checkerErr.RetryAfter = hint.after
		}
		return "", cerr
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ports.NewCheckerError(BackendOpenAI, ports.ErrInvalidResponse, 0, "no choices", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *openAICompleter) handleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.classifier.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return p.classifier.ClassifyHTTPError(apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode >= http.StatusBadRequest {
		return p.classifier.ClassifyHTTPError(reqErr.HTTPStatusCode, "request failed", err)
	}
	return p.classifier.ClassifyTransportError(err)
}

type retryHintKey struct{}

// retryHint carries the Retry-After of a failed response back to the
// caller; the SDK's error types drop response headers.
type retryHint struct {
	after *time.Duration
}

type retryHintDoer struct {
	next openai.HTTPDoer
}

func (d retryHintDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.next.Do(req)
	if err != nil || resp.StatusCode < http.StatusBadRequest {
		return resp, err
	}
	if hint, ok := req.Context().Value(retryHintKey{}).(*retryHint); ok {
		hint.after = retryAfter(resp.Header)
	}
	return resp, err
}

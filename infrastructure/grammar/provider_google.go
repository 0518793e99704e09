package grammar

import (
	"context"
	"errors"
	"fmt"
	"math"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// GoogleDefaultModel is used when Config.Model is empty.
const GoogleDefaultModel = "gemini-2.0-flash"

func init() {
	RegisterCompleter(BackendGoogle, newGoogleCompleter)
}

type googleCompleter struct {
	client     *genai.Client
	model      string
	classifier ErrorClassifier
}

func newGoogleCompleter(cfg Config) (Completer, error) {
	model := cfg.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Endpoint != "" {
		clientConfig.HTTPOptions.BaseURL = cfg.Endpoint
	}
	if cfg.HTTPClient != nil || cfg.Timeout > 0 {
		clientConfig.HTTPClient = httpClient(cfg)
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &googleCompleter{
		client:     client,
		model:      model,
		classifier: ErrorClassifier{Backend: BackendGoogle},
	}, nil
}

func (p *googleCompleter) Model() string { return p.model }

func (p *googleCompleter) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	if opts.System != "" {
		prompt = fmt.Sprintf("System: %s\n\nUser: %s", opts.System, prompt)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(min(opts.MaxTokens, math.MaxInt32))
	}
	if opts.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, config)
	if err != nil {
		return "", p.handleError(err)
	}

	reply := resp.Text()
	if reply == "" {
		return "", ports.NewCheckerError(BackendGoogle, ports.ErrInvalidResponse, 0, "no candidates", ErrEmptyResponse)
	}
	return reply, nil
}

func (p *googleCompleter) handleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.classifier.ClassifyContextError(err)
	}
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		cerr := p.classifier.ClassifyHTTPError(genaiErr.Code, genaiErr.Message, err)
		cerr.RetryAfter = retryInfoDelay(genaiErr.Details)
		return cerr
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}
		cerr := p.classifier.ClassifyHTTPError(apiErr.Code, message, err)
		cerr.RetryAfter = retryAfter(apiErr.Header)
		return cerr
	}
	return p.classifier.ClassifyTransportError(err)
}

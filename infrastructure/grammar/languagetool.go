package grammar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// DefaultLanguageToolEndpoint is a LanguageTool server on its default port.
const DefaultLanguageToolEndpoint = "http://localhost:8010/v2/check"

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 512

// languageToolResponse is the subset of the /v2/check response we read.
type languageToolResponse struct {
	Matches []struct {
		Message string `json:"message"`
		Offset  int    `json:"offset"`
		Length  int    `json:"length"`
		Rule    struct {
			ID       string `json:"id"`
			Category struct {
				ID string `json:"id"`
			} `json:"category"`
		} `json:"rule"`
	} `json:"matches"`
}

// LanguageToolChecker counts matches reported by a LanguageTool server.
type LanguageToolChecker struct {
	endpoint   string
	language   string
	client     *http.Client
	classifier ErrorClassifier
	ignored    map[string]struct{}
}

var _ ports.GrammarChecker = (*LanguageToolChecker)(nil)

// NewLanguageToolChecker validates the endpoint and builds the checker.
func NewLanguageToolChecker(cfg Config) (*LanguageToolChecker, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultLanguageToolEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid LanguageTool endpoint %q", endpoint)
	}
	lang := cfg.Language
	if lang == "" {
		lang = "en-US"
	}
	return &LanguageToolChecker{
		endpoint:   u.String(),
		language:   lang,
		client:     httpClient(cfg),
		classifier: ErrorClassifier{Backend: BackendLanguageTool},
		ignored:    make(map[string]struct{}),
	}, nil
}

// IgnoreCategories excludes matches of the given LanguageTool category IDs,
// e.g. "TYPOGRAPHY", from the count. It must be called before first use.
func (c *LanguageToolChecker) IgnoreCategories(ids ...string) *LanguageToolChecker {
	for _, id := range ids {
		c.ignored[strings.ToUpper(id)] = struct{}{}
	}
	return c
}

// Name returns BackendLanguageTool.
func (c *LanguageToolChecker) Name() string { return BackendLanguageTool }

// CheckErrors posts text to the server and counts the returned matches.
func (c *LanguageToolChecker) CheckErrors(ctx context.Context, text string) (int, error) {
	form := url.Values{}
	form.Set("language", c.language)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, fmt.Errorf("build LanguageTool request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, c.classifier.ClassifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		cerr := c.classifier.ClassifyHTTPError(resp.StatusCode, strings.TrimSpace(string(body)), nil)
		cerr.RetryAfter = retryAfter(resp.Header)
		return 0, cerr
	}

	var out languageToolResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, c.classifier.InvalidResponse("decode response: %v", err)
	}

	count := 0
	for _, m := range out.Matches {
		if _, skip := c.ignored[strings.ToUpper(m.Rule.Category.ID)]; skip {
			continue
		}
		count++
	}
	return count, nil
}

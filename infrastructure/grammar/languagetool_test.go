package grammar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

const twoMatchesResponse = `{"matches":[
  {"message":"Possible spelling mistake","offset":4,"length":5,"rule":{"id":"MORFOLOGIK_RULE_EN_US","category":{"id":"TYPOS"}}},
  {"message":"Use a comma","offset":20,"length":3,"rule":{"id":"COMMA","category":{"id":"PUNCTUATION"}}}
]}`

// TestLanguageToolChecker_CountsMatches verifies the form request and that
// every match is counted.
func TestLanguageToolChecker_CountsMatches(t *testing.T) {
	var gotLang, gotText, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		require.NoError(t, r.ParseForm())
		gotLang = r.PostForm.Get("language")
		gotText = r.PostForm.Get("text")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(twoMatchesResponse))
	}))
	defer srv.Close()

	checker, err := NewLanguageToolChecker(Config{Endpoint: srv.URL + "/v2/check"})
	require.NoError(t, err)

	n, err := checker.CheckErrors(context.Background(), "Thiss is a test yes it is.")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "en-US", gotLang)
	assert.Equal(t, "Thiss is a test yes it is.", gotText)
	assert.Equal(t, BackendLanguageTool, checker.Name())
}

// TestLanguageToolChecker_IgnoresCategories verifies that ignored categories
// are excluded from the count regardless of case.
func TestLanguageToolChecker_IgnoresCategories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(twoMatchesResponse))
	}))
	defer srv.Close()

	checker, err := NewLanguageToolChecker(Config{Endpoint: srv.URL, Language: "en-GB"})
	require.NoError(t, err)
	checker.IgnoreCategories("punctuation")

	n, err := checker.CheckErrors(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// TestLanguageToolChecker_ClassifiesFailures verifies that HTTP failures
// become classified checker errors.
func TestLanguageToolChecker_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantKind  error
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, "slow down", ports.ErrRateLimited, true},
		{"server error", http.StatusInternalServerError, "boom", ports.ErrServiceUnavailable, true},
		{"bad request", http.StatusBadRequest, "missing text", ports.ErrInvalidRequest, false},
		{"malformed body", http.StatusOK, "{not json", ports.ErrInvalidResponse, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			checker, err := NewLanguageToolChecker(Config{Endpoint: srv.URL})
			require.NoError(t, err)

			_, err = checker.CheckErrors(context.Background(), "text")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.Equal(t, tt.retryable, ports.IsRetryable(err))

			var cerr *ports.CheckerError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, BackendLanguageTool, cerr.Backend)
		})
	}
}

// TestNewLanguageToolChecker_RejectsBadEndpoints verifies endpoint validation.
func TestNewLanguageToolChecker_RejectsBadEndpoints(t *testing.T) {
	for _, endpoint := range []string{"ftp://example.com", "not a url", "http://"} {
		_, err := NewLanguageToolChecker(Config{Endpoint: endpoint})
		assert.Error(t, err, endpoint)
	}
}

// TestNewChecker_BuildsLanguageTool verifies the factory path and that
// middleware is applied.
func TestNewChecker_BuildsLanguageTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"matches":[]}`))
	}))
	defer srv.Close()

	collector := newRecordingCollector()
	checker, err := NewChecker(Config{Backend: BackendLanguageTool, Endpoint: srv.URL},
		MetricsMiddleware(collector))
	require.NoError(t, err)

	n, err := checker.CheckErrors(context.Background(), "Fine text.")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1.0, collector.counters[MetricGrammarChecks+":success"])
}

// TestNewChecker_UnknownBackend verifies that unregistered backends fail.
func TestNewChecker_UnknownBackend(t *testing.T) {
	_, err := NewChecker(Config{Backend: "nope", APIKey: "k"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

// TestNewChecker_LLMRequiresAPIKey verifies that LLM backends need a key.
func TestNewChecker_LLMRequiresAPIKey(t *testing.T) {
	for _, backend := range []string{BackendOpenAI, BackendAnthropic, BackendGoogle} {
		_, err := NewChecker(Config{Backend: backend})
		assert.ErrorIs(t, err, ErrEmptyAPIKey, backend)
	}
}

// TestLanguageToolChecker_HonoursRetryAfter carries the Retry-After header
// of a rate limited response.
func TestLanguageToolChecker_HonoursRetryAfter(t *testing.T) {
	f := providerFailures[0]
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", f.retryAfter)
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	checker, err := NewLanguageToolChecker(Config{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = checker.CheckErrors(context.Background(), "Some text.")
	assertClassified(t, err, BackendLanguageTool, f)
}

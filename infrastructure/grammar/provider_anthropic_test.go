package grammar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

type anthropicTextBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// anthropicRequest is the subset of a messages request the tests read.
type anthropicRequest struct {
	Model     string               `json:"model"`
	MaxTokens int                  `json:"max_tokens"`
	System    []anthropicTextBlock `json:"system"`
	Messages  []struct {
		Role    string               `json:"role"`
		Content []anthropicTextBlock `json:"content"`
	} `json:"messages"`
}

func anthropicReply(blocks ...anthropicTextBlock) string {
	if blocks == nil {
		blocks = []anthropicTextBlock{}
	}
	body, _ := json.Marshal(map[string]any{
		"id":            "msg_1",
		"type":          "message",
		"role":          "assistant",
		"model":         AnthropicDefaultModel,
		"content":       blocks,
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         map[string]int{"input_tokens": 1, "output_tokens": 1},
	})
	return string(body)
}

func newAnthropicTestCompleter(t *testing.T, handler http.HandlerFunc) Completer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewCompleter(Config{Backend: BackendAnthropic, APIKey: "test-key", Endpoint: srv.URL})
	require.NoError(t, err)
	return c
}

// TestAnthropicCompleter_Complete sends the system prompt separately from
// the user turn and joins the text blocks of the reply.
func TestAnthropicCompleter_Complete(t *testing.T) {
	var (
		got    anthropicRequest
		apiKey string
		path   string
	)
	c := newAnthropicTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("X-Api-Key")
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(anthropicReply(
			anthropicTextBlock{Type: "text", Text: `{"issues":`},
			anthropicTextBlock{Type: "text", Text: `[]}`},
		)))
	})

	reply, err := c.Complete(context.Background(), "Essay:\n\nThey was late.", CompletionOptions{
		System:    "You are a copy editor.",
		MaxTokens: 512,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"issues":[]}`, reply)
	assert.Equal(t, AnthropicDefaultModel, c.Model())

	assert.Equal(t, "test-key", apiKey)
	assert.Equal(t, "/v1/messages", path)
	assert.Equal(t, AnthropicDefaultModel, got.Model)
	assert.Equal(t, 512, got.MaxTokens)
	require.Len(t, got.System, 1)
	assert.Equal(t, "You are a copy editor.", got.System[0].Text)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	require.Len(t, got.Messages[0].Content, 1)
	assert.Contains(t, got.Messages[0].Content[0].Text, "They was late.")
}

// TestAnthropicCompleter_DefaultMaxTokens fills in max_tokens, which the
// messages API requires.
func TestAnthropicCompleter_DefaultMaxTokens(t *testing.T) {
	var got anthropicRequest
	c := newAnthropicTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(anthropicReply(anthropicTextBlock{Type: "text", Text: "ok"})))
	})

	_, err := c.Complete(context.Background(), "text", CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1024, got.MaxTokens)
	assert.Empty(t, got.System)
}

// TestAnthropicCompleter_EmptyReply treats a reply without text blocks as
// an invalid response.
func TestAnthropicCompleter_EmptyReply(t *testing.T) {
	c := newAnthropicTestCompleter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(anthropicReply()))
	})

	_, err := c.Complete(context.Background(), "text", CompletionOptions{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.ErrorIs(t, err, ports.ErrInvalidResponse)
	assert.False(t, ports.IsRetryable(err))
}

// TestAnthropicCompleter_ErrorClassification maps HTTP failures to checker
// error kinds and makes exactly one request per call.
func TestAnthropicCompleter_ErrorClassification(t *testing.T) {
	for _, f := range providerFailures {
		t.Run(f.name, func(t *testing.T) {
			calls := 0
			c := newAnthropicTestCompleter(t, func(w http.ResponseWriter, _ *http.Request) {
				calls++
				if f.retryAfter != "" {
					w.Header().Set("Retry-After", f.retryAfter)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(f.status)
				_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"request failed"}}`))
			})

			_, err := c.Complete(context.Background(), "text", CompletionOptions{})
			assertClassified(t, err, BackendAnthropic, f)
			assert.Equal(t, 1, calls)
		})
	}
}

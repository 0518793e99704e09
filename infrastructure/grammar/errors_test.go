package grammar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// TestErrorClassifier_ClassifyHTTPError verifies status code mapping.
func TestErrorClassifier_ClassifyHTTPError(t *testing.T) {
	ec := ErrorClassifier{Backend: "test"}
	tests := []struct {
		status int
		want   error
	}{
		{401, ports.ErrAuthenticationFailed},
		{403, ports.ErrAuthenticationFailed},
		{408, ports.ErrTimeout},
		{429, ports.ErrRateLimited},
		{500, ports.ErrServiceUnavailable},
		{503, ports.ErrServiceUnavailable},
		{400, ports.ErrInvalidRequest},
		{404, ports.ErrInvalidRequest},
		{200, ports.ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := ec.ClassifyHTTPError(tt.status, "msg", nil)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, "test", err.Backend)
		})
	}
}

// TestErrorClassifier_ContextAndTransport verifies context and transport
// classification.
func TestErrorClassifier_ContextAndTransport(t *testing.T) {
	ec := ErrorClassifier{Backend: "test"}

	deadline := ec.ClassifyContextError(context.DeadlineExceeded)
	assert.ErrorIs(t, deadline, ports.ErrTimeout)
	assert.ErrorIs(t, deadline, context.DeadlineExceeded)
	assert.True(t, deadline.IsRetryable())

	canceled := ec.ClassifyTransportError(fmt.Errorf("dial: %w", context.Canceled))
	assert.ErrorIs(t, canceled, context.Canceled)
	assert.False(t, canceled.IsRetryable())

	transport := ec.ClassifyTransportError(errors.New("connection refused"))
	assert.ErrorIs(t, transport, ports.ErrServiceUnavailable)
	assert.True(t, transport.IsRetryable())
}

// TestRetryAfter reads delays given in seconds or as an HTTP date.
func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"seconds", "12", 12 * time.Second},
		{"padded", " 5 ", 5 * time.Second},
		{"missing", "", 0},
		{"zero", "0", 0},
		{"past date", "Mon, 02 Jan 2006 15:04:05 GMT", 0},
		{"garbage", "soon", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.value != "" {
				h.Set("Retry-After", tt.value)
			}
			got := retryAfter(h)
			if tt.want == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}

	h := http.Header{}
	h.Set("Retry-After", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
	got := retryAfter(h)
	require.NotNil(t, got)
	assert.InDelta(t, time.Hour.Seconds(), got.Seconds(), 5)
}

// TestRetryInfoDelay reads the RetryInfo detail and skips the others.
func TestRetryInfoDelay(t *testing.T) {
	got := retryInfoDelay([]map[string]any{
		{"@type": "type.googleapis.com/google.rpc.ErrorInfo", "reason": "RATE_LIMIT_EXCEEDED"},
		{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "1.5s"},
	})
	require.NotNil(t, got)
	assert.Equal(t, 1500*time.Millisecond, *got)

	assert.Nil(t, retryInfoDelay(nil))
	assert.Nil(t, retryInfoDelay([]map[string]any{{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": 3}}))
}

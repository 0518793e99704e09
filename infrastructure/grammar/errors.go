package grammar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// Common errors returned by grammar backends.
var (
	// ErrEmptyAPIKey indicates that an API key was required but not provided.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")

	// ErrEmptyResponse indicates that a backend returned no content.
	ErrEmptyResponse = errors.New("empty response from backend")

	// ErrUnknownBackend indicates that no backend is registered under a name.
	ErrUnknownBackend = errors.New("unknown grammar backend")
)

// ErrorClassifier normalises backend failures into *ports.CheckerError.
type ErrorClassifier struct {
	// Backend is the name recorded on every classified error.
	Backend string
}

// ClassifyHTTPError maps an HTTP status code to a failure kind.
func (ec ErrorClassifier) ClassifyHTTPError(statusCode int, message string, err error) *ports.CheckerError {
	var kind error
	switch {
	case statusCode == 401 || statusCode == 403:
		kind = ports.ErrAuthenticationFailed
	case statusCode == 408:
		kind = ports.ErrTimeout
	case statusCode == 429:
		kind = ports.ErrRateLimited
	case statusCode >= 500:
		kind = ports.ErrServiceUnavailable
	case statusCode >= 400:
		kind = ports.ErrInvalidRequest
	default:
		kind = ports.ErrInvalidResponse
	}
	return ports.NewCheckerError(ec.Backend, kind, statusCode, message, err)
}

// ClassifyContextError maps context cancellation and deadlines.
func (ec ErrorClassifier) ClassifyContextError(err error) *ports.CheckerError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ports.NewCheckerError(ec.Backend, ports.ErrTimeout, 0, "deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return ports.NewCheckerError(ec.Backend, context.Canceled, 0, "request canceled", err)
	default:
		return ports.NewCheckerError(ec.Backend, nil, 0, "", err)
	}
}

// ClassifyTransportError classifies an error from sending a request.
func (ec ErrorClassifier) ClassifyTransportError(err error) *ports.CheckerError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ec.ClassifyContextError(err)
	}
	return ports.NewCheckerError(ec.Backend, ports.ErrServiceUnavailable, 0, "request failed", err)
}

// InvalidResponse reports a response that could not be interpreted.
func (ec ErrorClassifier) InvalidResponse(format string, args ...any) *ports.CheckerError {
	return ports.NewCheckerError(ec.Backend, ports.ErrInvalidResponse, 0, fmt.Sprintf(format, args...), nil)
}

// retryAfter reads a Retry-After header given in seconds or as an HTTP date.
func retryAfter(h http.Header) *time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return nil
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		d = time.Until(at)
	}
	if d <= 0 {
		return nil
	}
	return &d
}

// retryInfoDelay reads the delay of a google.rpc.RetryInfo error detail.
func retryInfoDelay(details []map[string]any) *time.Duration {
	for _, detail := range details {
		typ, _ := detail["@type"].(string)
		if !strings.HasSuffix(typ, "google.rpc.RetryInfo") {
			continue
		}
		raw, _ := detail["retryDelay"].(string)
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return &d
		}
	}
	return nil
}

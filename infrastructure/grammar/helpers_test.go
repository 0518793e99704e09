package grammar

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// recordingCollector captures metrics keyed by name and status label.
type recordingCollector struct {
	mu         sync.Mutex
	counters   map[string]float64
	histograms map[string][]float64
	labels     []map[string]string
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{
		counters:   make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (r *recordingCollector) RecordLatency(string, time.Duration, map[string]string) {}
func (r *recordingCollector) RecordGauge(string, float64, map[string]string)         {}

func (r *recordingCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[metric+":"+labels["status"]] += value
	r.labels = append(r.labels, labels)
}

func (r *recordingCollector) RecordHistogram(metric string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histograms[metric] = append(r.histograms[metric], value)
}

// fakeCompleter returns a canned reply and remembers the last request.
type fakeCompleter struct {
	reply      string
	err        error
	lastPrompt string
	lastOpts   CompletionOptions
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, opts CompletionOptions) (string, error) {
	f.lastPrompt = prompt
	f.lastOpts = opts
	return f.reply, f.err
}

func (f *fakeCompleter) Model() string { return "fake-model" }

// fakeCircuitMetrics counts breaker events.
type fakeCircuitMetrics struct {
	trips, successes, failures int
	last                       CircuitBreakerState
}

func (f *fakeCircuitMetrics) RecordState(s CircuitBreakerState) { f.last = s }
func (f *fakeCircuitMetrics) RecordTrip()                       { f.trips++ }
func (f *fakeCircuitMetrics) RecordSuccess()                    { f.successes++ }
func (f *fakeCircuitMetrics) RecordFailure()                    { f.failures++ }

// providerFailure is an HTTP failure a provider must classify.
type providerFailure struct {
	name       string
	status     int
	retryAfter string
	wantKind   error
	wantRetry  bool
	wantAfter  time.Duration
}

// providerFailures covers the statuses the retry and breaker middleware
// act on.
var providerFailures = []providerFailure{
	{name: "rate limited", status: http.StatusTooManyRequests, retryAfter: "7", wantKind: ports.ErrRateLimited, wantRetry: true, wantAfter: 7 * time.Second},
	{name: "server error", status: http.StatusInternalServerError, wantKind: ports.ErrServiceUnavailable, wantRetry: true},
	{name: "unauthorized", status: http.StatusUnauthorized, wantKind: ports.ErrAuthenticationFailed},
	{name: "bad request", status: http.StatusBadRequest, wantKind: ports.ErrInvalidRequest},
}

// assertClassified checks the kind, retryability and retry hint of err.
func assertClassified(t *testing.T, err error, backend string, f providerFailure) {
	t.Helper()
	var cerr *ports.CheckerError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, backend, cerr.Backend)
	assert.Equal(t, f.status, cerr.StatusCode)
	assert.ErrorIs(t, err, f.wantKind)
	assert.Equal(t, f.wantRetry, cerr.IsRetryable())
	if f.wantAfter == 0 {
		assert.Nil(t, cerr.RetryAfter)
		return
	}
	require.NotNil(t, cerr.RetryAfter)
	assert.Equal(t, f.wantAfter, *cerr.RetryAfter)
}

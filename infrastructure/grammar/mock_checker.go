package grammar

import (
	"context"
	"sync"
	"time"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// MockChecker is a configurable ports.GrammarChecker for tests.
type MockChecker struct {
	mu sync.Mutex

	// BackendName is returned by Name. Defaults to "mock".
	BackendName string

	// Issues is returned on success.
	Issues int

	// Error is returned on every call when Errors is exhausted.
	Error error

	// Errors are returned in order, one per call, before falling back to Error.
	Errors []error

	// Delay is waited before responding; the wait ends early on cancellation.
	Delay time.Duration

	CallCount int
	LastText  string
	CallTimes []time.Time
}

var _ ports.GrammarChecker = (*MockChecker)(nil)

// NewMockChecker returns a mock that reports issues and never fails.
func NewMockChecker(issues int) *MockChecker {
	return &MockChecker{BackendName: "mock", Issues: issues}
}

// Name returns BackendName.
func (m *MockChecker) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackendName == "" {
		return "mock"
	}
	return m.BackendName
}

// CheckErrors records the call and returns the configured outcome.
func (m *MockChecker) CheckErrors(ctx context.Context, text string) (int, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastText = text
	m.CallTimes = append(m.CallTimes, time.Now())
	call := m.CallCount
	delay := m.Delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if call <= len(m.Errors) {
		if err := m.Errors[call-1]; err != nil {
			return 0, err
		}
		return m.Issues, nil
	}
	if m.Error != nil {
		return 0, m.Error
	}
	return m.Issues, nil
}

// Calls returns the number of CheckErrors calls.
func (m *MockChecker) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

package github

import (
	"context"
	"errors"
	"strings"
)

// MockRunner is a test double for CommandRunner.
type MockRunner struct {
	// Responses maps command patterns to responses. A pattern matches if
	// the joined command equals it, starts with it, or contains it.
	Responses map[string]MockResponse

	// Calls records all calls made to the runner.
	Calls []MockCall
}

// MockResponse represents a mocked command response.
type MockResponse struct {
	Output string
	Err    error
}

// MockCall records a single call to the runner.
type MockCall struct {
	Name string
	Args []string
}

// NewMockRunner creates a new MockRunner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		Responses: make(map[string]MockResponse),
	}
}

// Run implements CommandRunner.
func (m *MockRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	m.Calls = append(m.Calls, MockCall{Name: name, Args: args})

	fullCmd := name + " " + strings.Join(args, " ")

	if resp, ok := m.Responses[fullCmd]; ok {
		return resp.Output, resp.Err
	}
	for pattern, resp := range m.Responses {
		if strings.HasPrefix(fullCmd, pattern) || strings.Contains(fullCmd, pattern) {
			return resp.Output, resp.Err
		}
	}

	return "", errors.New("no mock response configured for: " + fullCmd)
}

// OnCommand sets a response for a specific command pattern.
func (m *MockRunner) OnCommand(pattern string) *MockResponseBuilder {
	return &MockResponseBuilder{runner: m, pattern: pattern}
}

// MockResponseBuilder helps build mock responses fluently.
type MockResponseBuilder struct {
	runner  *MockRunner
	pattern string
}

// Return sets the output for this command.
func (b *MockResponseBuilder) Return(output string) *MockRunner {
	b.runner.Responses[b.pattern] = MockResponse{Output: output}
	return b.runner
}

// ReturnError sets an error for this command.
func (b *MockResponseBuilder) ReturnError(err error) *MockRunner {
	b.runner.Responses[b.pattern] = MockResponse{Err: err}
	return b.runner
}

// CallCount returns the number of times a command pattern was called.
func (m *MockRunner) CallCount(pattern string) int {
	count := 0
	for _, call := range m.Calls {
		fullCmd := call.Name + " " + strings.Join(call.Args, " ")
		if strings.Contains(fullCmd, pattern) {
			count++
		}
	}
	return count
}

// LastCall returns the last call made, or nil if no calls.
func (m *MockRunner) LastCall() *MockCall {
	if len(m.Calls) == 0 {
		return nil
	}
	return &m.Calls[len(m.Calls)-1]
}

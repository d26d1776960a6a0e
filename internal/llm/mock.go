package llm

import (
	"context"
	"strings"
	"sync"
)

// MockClient is an offline LLMClient for development and tests.
// Responses can be scripted per prompt substring; unmatched prompts
// get the default response.
type MockClient struct {
	mu        sync.Mutex
	responses map[string]string
	fallback  string
	calls     int
}

// NewMockClient creates a mock client with an empty script.
func NewMockClient() *MockClient {
	return &MockClient{
		responses: make(map[string]string),
		fallback:  "ok",
	}
}

// Respond registers a response for prompts containing the substring.
func (m *MockClient) Respond(substring, response string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[substring] = response
	return m
}

// SetFallback sets the response for unmatched prompts.
func (m *MockClient) SetFallback(response string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = response
	return m
}

// Calls returns how many completions have been requested.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Complete returns the scripted response for the prompt.
func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem returns the scripted response for the prompt.
func (m *MockClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	for substring, response := range m.responses {
		if substring != "" && strings.Contains(userPrompt, substring) {
			return response, nil
		}
	}
	return m.fallback, nil
}

package ai

import (
	"context"
	"sync"

	"github.com/tripweaver/tripweaver/core"
)

// MockClient is a scripted core.AIClient for tests and local development.
// Responses are returned in order; the last one repeats once exhausted.
type MockClient struct {
	mu        sync.Mutex
	responses []mockResponse
	calls     int
}

type mockResponse struct {
	content string
	err     error
}

// NewMockClient creates a mock that replies with the given contents
func NewMockClient(contents ...string) *MockClient {
	m := &MockClient{}
	for _, content := range contents {
		m.responses = append(m.responses, mockResponse{content: content})
	}
	return m
}

// QueueError schedules an error reply
func (m *MockClient) QueueError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResponse{err: err})
	return m
}

// QueueResponse schedules a content reply
func (m *MockClient) QueueResponse(content string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResponse{content: content})
	return m
}

// Calls reports how many requests were made
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// GenerateResponse returns the next scripted reply
func (m *MockClient) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := m.calls
	m.calls++
	if len(m.responses) == 0 {
		return &core.AIResponse{Content: "", Model: "mock"}, nil
	}
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	next := m.responses[idx]
	if next.err != nil {
		return nil, next.err
	}
	return &core.AIResponse{
		Content: next.content,
		Model:   "mock",
		Usage:   core.TokenUsage{TotalTokens: len(next.content) / 4},
	}, nil
}

package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is one scripted reply for the MockProvider. Either
// Content or Err is consumed, never both.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider plays back scripted replies in order and records every
// request it saw. Tests drive the judge through it without a network.
type MockProvider struct {
	mu    sync.Mutex
	queue []MockResponse

	// Calls holds every request passed to Generate, oldest first.
	Calls []Request
}

// NewMockProvider seeds a mock with an initial script. More replies can
// be queued later with AddResponse.
func NewMockProvider(script ...MockResponse) *MockProvider {
	return &MockProvider{queue: script}
}

// AddResponse queues another scripted reply.
func (m *MockProvider) AddResponse(r MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, r)
}

// Generate pops the next scripted reply. An exhausted script behaves
// like an unreachable provider.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	if len(m.queue) == 0 {
		return nil, &ErrProviderUnavailable{}
	}

	next := m.queue[0]
	m.queue = m.queue[1:]
	if next.Err != nil {
		return nil, next.Err
	}
	return &Response{
		Content:    next.Content,
		Usage:      next.Usage,
		Model:      m.ModelID(),
		StopReason: "end",
	}, nil
}

func (m *MockProvider) ModelID() string { return "mock" }

// CallCount reports how many times Generate ran.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

package llm

import (
	"context"
	"sync"
)

// MockService is a scriptable Service implementation for tests and offline use.
// Responses are consumed in order; when the script is exhausted the final
// response repeats.
type MockService struct {
	mu        sync.Mutex
	Responses []ChatResponse
	Err       error
	// Calls records every message batch the mock received.
	Calls [][]Message

	next int
}

// NewMockService returns a mock that always answers with the given text.
func NewMockService(text string) *MockService {
	return &MockService{Responses: []ChatResponse{{Content: text}}}
}

func (m *MockService) Chat(ctx context.Context, messages []Message) (string, *CallStats, error) {
	resp, err := m.take(messages)
	if err != nil {
		return "", nil, err
	}
	return resp.Content, &CallStats{}, nil
}

func (m *MockService) ChatWithTools(ctx context.Context, messages []Message, tools []ToolDescriptor) (*ChatResponse, *CallStats, error) {
	resp, err := m.take(messages)
	if err != nil {
		return nil, nil, err
	}
	return resp, &CallStats{}, nil
}

func (m *MockService) take(messages []Message) (*ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, append([]Message(nil), messages...))
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return &ChatResponse{}, nil
	}
	resp := m.Responses[m.next]
	if m.next < len(m.Responses)-1 {
		m.next++
	}
	return &resp, nil
}

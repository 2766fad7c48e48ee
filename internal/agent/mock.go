package agent

import (
	"context"
	"sync"
)

// MockClient returns canned replies for local/dev use and tests.
type MockClient struct {
	mu      sync.Mutex
	Replies []Reply
	Err     error
	next    int
	Calls   []string
}

func NewMockClient() *MockClient {
	return &MockClient{Replies: []Reply{{Text: "Tell me about a project you are proud of."}}}
}

func (m *MockClient) Respond(_ context.Context, _, _ string, message string) (Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, message)
	if m.Err != nil {
		return Reply{}, m.Err
	}
	if len(m.Replies) == 0 {
		return Reply{Text: "Understood."}, nil
	}
	r := m.Replies[m.next%len(m.Replies)]
	m.next++
	return r, nil
}

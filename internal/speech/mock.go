package speech

import "context"

// MockClient fabricates audio for local/dev use and tests.
type MockClient struct {
	Err error
}

func NewMockClient() *MockClient { return &MockClient{} }

func (m *MockClient) Synthesize(_ context.Context, text, voice string, speed float64) ([]byte, error) {
	if err := ValidateRequest(text, voice, speed); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return []byte("mock-audio:" + text), nil
}

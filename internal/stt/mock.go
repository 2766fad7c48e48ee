package stt

import "context"

// MockClient returns scripted transcriptions for local/dev use and tests.
type MockClient struct {
	Result Result
	Err    error
}

func NewMockClient() *MockClient {
	return &MockClient{Result: Result{Text: "simulated voice input", Confidence: 0.95}}
}

func (m *MockClient) Transcribe(_ context.Context, _ []byte, _ string) (Result, error) {
	if m.Err != nil {
		return Result{}, m.Err
	}
	return m.Result, nil
}

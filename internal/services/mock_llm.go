package services

import (
	"context"
	"sync"
)

// MockGenerator is a mock implementation of Generator for testing
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, req GenRequest) (*GenResponse, error)

	// Track calls for testing
	GenerateCalls []GenRequest

	mu sync.Mutex // protects all fields above
}

var _ Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a new mock generator
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		GenerateCalls: make([]GenRequest, 0),
	}
}

func (m *MockGenerator) Name() string {
	return "mock"
}

// Generate mocks text generation. Without an override it returns a canned
// response with small token counts.
func (m *MockGenerator) Generate(ctx context.Context, req GenRequest) (*GenResponse, error) {
	m.mu.Lock()
	m.GenerateCalls = append(m.GenerateCalls, req)
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &GenResponse{Text: "mock response", InputTokens: 10, OutputTokens: 5}, nil
}

// CallCount returns how many times Generate was invoked.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GenerateCalls)
}

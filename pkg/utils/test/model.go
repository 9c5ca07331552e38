package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/recall/pkg/llm"
)

// MockModel is a test model that records requests and returns a canned
// response.
type MockModel struct {
	mu sync.Mutex

	// Requests records every request passed to Chat.
	Requests []*llm.ChatRequest

	// Response is returned by Chat. Nil with a nil Err yields an empty reply.
	Response *llm.ChatResponse
	Err      error

	// Block makes Chat wait for ctx to end.
	Block bool
}

// NewMockModel returns a model that always answers text.
func NewMockModel(text string) *MockModel {
	return &MockModel{Response: &llm.ChatResponse{
		Model:   "mock",
		Message: llm.NewTextMessage(llm.RoleAssistant, text),
	}}
}

func (m *MockModel) Name() string {
	return "mock"
}

func (m *MockModel) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req.Clone())
	block := m.Block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.Response, m.Err
}

func (m *MockModel) Close() error {
	return nil
}

package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/recall/pkg/embeddings"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	mu sync.Mutex

	Embeddings map[string][]float32

	// Default is returned for text without an entry in Embeddings.
	Default []float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// FailAll causes every Embed call to fail.
	FailAll bool

	// Calls records every text passed to Embed, in order.
	Calls []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		Default:    []float32{0.1, 0.2, 0.3},
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, text)

	if m.FailAll || (m.FailOn != "" && text == m.FailOn) {
		return nil, fmt.Errorf("%w: mock embedding failure for: %s", embeddings.ErrUnavailable, text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return append([]float32(nil), emb...), nil
	}

	return append([]float32(nil), m.Default...), nil
}

func (m *MockEmbedder) Close() error {
	return nil
}

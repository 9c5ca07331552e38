package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/recall/pkg/memory"
)

// MockMemoryDriver is a test memory driver that records calls and returns
// configurable results.
type MockMemoryDriver struct {
	mu sync.Mutex

	// Stored accumulates all exchanges passed to Store.
	Stored []memory.Exchange

	// Queries accumulates all queries passed to Recall.
	Queries []memory.Query

	// RecallResult is returned by Recall for any query.
	RecallResult memory.Recollection

	// RecallErr and StoreErr are returned when set.
	RecallErr error
	StoreErr  error
}

// NewMockMemoryDriver creates a new mock memory driver.
func NewMockMemoryDriver() *MockMemoryDriver {
	return &MockMemoryDriver{}
}

func (m *MockMemoryDriver) Store(_ context.Context, ex memory.Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.StoreErr != nil {
		return m.StoreErr
	}
	m.Stored = append(m.Stored, ex)
	return nil
}

func (m *MockMemoryDriver) Recall(_ context.Context, q memory.Query) (memory.Recollection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Queries = append(m.Queries, q)
	if m.RecallErr != nil {
		return memory.Recollection{}, m.RecallErr
	}
	return m.RecallResult, nil
}

func (m *MockMemoryDriver) Close() error {
	return nil
}

package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/recall/pkg/vector"
)

// MockVectorDriver is a test vector driver
type MockVectorDriver struct {
	mu sync.Mutex

	Documents []vector.Document

	// Results is returned by Query, filtered to the queried user.
	Results []vector.QueryResult

	// AddErr and QueryErr are returned by Add and Query when set.
	AddErr   error
	QueryErr error

	Closed bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AddErr != nil {
		return m.AddErr
	}
	m.Documents = append(m.Documents, docs...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, userID string, _ []float32, topK int) ([]vector.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	var out []vector.QueryResult
	for _, r := range m.Results {
		if r.UserID != userID {
			continue
		}
		out = append(out, r)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

func (m *MockVectorDriver) Close() error {
	m.Closed = true
	return nil
}

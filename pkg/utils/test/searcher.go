package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/recall/pkg/memory"
)

// MockSearcher returns canned similarity results.
type MockSearcher struct {
	mu sync.Mutex

	// Results is returned for every search, truncated to k.
	Results []memory.Scored
	Err     error

	// Calls records the user, query and k of each search.
	Calls []SearchCall
}

// SearchCall is one recorded MockSearcher.Search invocation.
type SearchCall struct {
	UserID string
	Query  string
	K      int
}

func NewMockSearcher() *MockSearcher {
	return &MockSearcher{}
}

func (m *MockSearcher) Search(_ context.Context, userID, query string, k int) ([]memory.Scored, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, SearchCall{UserID: userID, Query: query, K: k})
	if m.Err != nil {
		return nil, m.Err
	}
	if k > 0 && len(m.Results) > k {
		return m.Results[:k], nil
	}
	return m.Results, nil
}

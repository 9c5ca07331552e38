package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/recall/pkg/storage"
	"github.com/papercomputeco/recall/pkg/storage/inmemory"
)

// MockStore wraps the in-memory driver with failure injection and call
// recording.
type MockStore struct {
	*inmemory.Driver

	mu sync.Mutex

	// Appended records every successful Append, in order.
	Appended []storage.Turn

	// FailLoad causes Load to fail with storage.ErrUnavailable.
	FailLoad bool

	// FailRole causes Append to fail for turns of that role.
	FailRole storage.Role

	// LoadCalls counts Load invocations.
	LoadCalls int
}

// NewMockStore creates a mock store with the given variant.
func NewMockStore(variant storage.Variant, opts ...inmemory.Option) *MockStore {
	return &MockStore{Driver: inmemory.NewDriver(variant, opts...)}
}

func (m *MockStore) Append(ctx context.Context, params storage.AppendParams) (*storage.Turn, error) {
	m.mu.Lock()
	fail := m.FailRole != "" && params.Role == m.FailRole
	m.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("%w: mock append failure for %s", storage.ErrUnavailable, params.Role)
	}

	turn, err := m.Driver.Append(ctx, params)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.Appended = append(m.Appended, *turn)
	m.mu.Unlock()
	return turn, nil
}

func (m *MockStore) Load(ctx context.Context, userID string) ([]storage.Turn, error) {
	m.mu.Lock()
	m.LoadCalls++
	fail := m.FailLoad
	m.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("%w: mock load failure", storage.ErrUnavailable)
	}
	return m.Driver.Load(ctx, userID)
}

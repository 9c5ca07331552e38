package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/recall/pkg/eventstream"
)

// MockPublisher records published events.
type MockPublisher struct {
	mu sync.Mutex

	Events []*eventstream.TurnPersistedEvent
	Err    error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishTurn(_ context.Context, event *eventstream.TurnPersistedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

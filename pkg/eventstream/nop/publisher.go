// Package nop provides the publisher used when no event stream is configured.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/recall/pkg/eventstream"
)

// Publisher validates and drops events, counting how many it saw.
type Publisher struct {
	dropped atomic.Int64
}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishTurn validates input and otherwise drops the event.
func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnPersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	p.dropped.Add(1)
	return nil
}

// Dropped returns how many events were accepted and discarded.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*Publisher)(nil)

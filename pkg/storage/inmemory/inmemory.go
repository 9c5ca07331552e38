// Package inmemory provides a map-backed turn store for tests and
// throwaway sessions.
package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/papercomputeco/recall/pkg/storage"
)

// Driver implements storage.Driver in process memory.
type Driver struct {
	// mu guards turns and nextID
	mu sync.RWMutex

	// turns is keyed by user id and kept in insertion order
	turns  map[string][]storage.Turn
	nextID int64

	variant storage.Variant
	now     func() time.Time
}

// Option configures a Driver.
type Option func(*Driver)

// WithClock replaces time.Now as the source of created_at.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		d.now = now
	}
}

// NewDriver creates a new in-memory turn store.
func NewDriver(variant storage.Variant, opts ...Option) *Driver {
	d := &Driver{
		turns:   make(map[string][]storage.Turn),
		variant: variant,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// EnsureSchema is a no-op; the map needs no schema.
func (d *Driver) EnsureSchema(_ context.Context) error {
	return nil
}

// Append stores a turn.
func (d *Driver) Append(ctx context.Context, params storage.AppendParams) (*storage.Turn, error) {
	if err := d.variant.Validate(params); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	turn := storage.Turn{
		ID:        d.nextID,
		UserID:    params.UserID,
		SessionID: params.SessionID,
		Role:      params.Role,
		Text:      params.Text,
		Embedding: slices.Clone(params.Embedding),
		CreatedAt: d.now().UTC(),
	}

	// created_at never moves backwards for a user
	existing := d.turns[params.UserID]
	if n := len(existing); n > 0 && turn.CreatedAt.Before(existing[n-1].CreatedAt) {
		turn.CreatedAt = existing[n-1].CreatedAt
	}

	d.turns[params.UserID] = append(existing, turn)

	out := turn
	return &out, nil
}

// Load returns a copy of the user's turns, oldest first.
func (d *Driver) Load(ctx context.Context, userID string) ([]storage.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	return slices.Clone(d.turns[userID]), nil
}

// Variant reports the schema variant.
func (d *Driver) Variant() storage.Variant {
	return d.variant
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

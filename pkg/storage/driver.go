// Package storage defines the turn store used for cross-session memory.
package storage

import (
	"context"
)

// Driver persists conversational turns and loads them back per user.
// Implementations own their connection handling; callers never manage
// connections directly.
type Driver interface {
	// EnsureSchema idempotently creates the turn table for the driver's
	// variant. It fails with ErrSchemaInit when the table cannot be created
	// or already exists with the other variant.
	EnsureSchema(ctx context.Context) error

	// Append stores one turn and returns it with its store-assigned id and
	// created_at. The embedding must be present exactly when the variant
	// carries embeddings.
	Append(ctx context.Context, params AppendParams) (*Turn, error)

	// Load returns every turn for userID, oldest first.
	Load(ctx context.Context, userID string) ([]Turn, error)

	// Variant reports the schema variant the driver was opened with.
	Variant() Variant

	// Close releases the driver's resources.
	Close() error
}

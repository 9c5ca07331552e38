// Package vector provides an optional similarity index over embedded turns.
//
// The turn store remains the source of truth. An index only answers "which
// turns of this user are closest to this embedding" and may lag behind the
// store; callers fall back to a linear scan when it is not configured.
package vector

import "context"

// Document is one indexed turn.
type Document struct {
	// TurnID is the store-assigned turn id.
	TurnID int64

	// UserID scopes queries so one user never sees another's turns.
	UserID string

	// Embedding is the vector representation of the turn text.
	Embedding []float32
}

// QueryResult is a search hit with its similarity score.
type QueryResult struct {
	Document

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of turn embeddings.
type Driver interface {
	// Add indexes documents. Re-adding a TurnID replaces its embedding.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK documents of userID most similar to embedding,
	// best first.
	Query(ctx context.Context, userID string, embedding []float32, topK int) ([]QueryResult, error)

	// Close releases any resources held by the driver.
	Close() error
}

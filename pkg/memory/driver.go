// Package memory provides the cross-session memory layer for recall.
//
// A [Driver] recalls what a user said in earlier sessions and stores each new
// exchange. The package also holds the pure pieces every driver shares:
// rendering turns with relative dates, deciding from the query whether dates
// and named-party framing belong in the prompt, and ranking turns by
// embedding similarity.
//
// Drivers are selected via configuration:
//
//	[memory]
//	mode = "local"   # or "remote"
package memory

import (
	"context"
	"time"
)

// Driver handles recall and storage of conversation memory.
type Driver interface {
	// Recall returns the memory relevant to q, already rendered for a prompt.
	Recall(ctx context.Context, q Query) (Recollection, error)

	// Store persists one completed exchange. Drivers store the user turn
	// before the agent turn and stop at the first failure.
	Store(ctx context.Context, ex Exchange) error

	// Close releases driver resources.
	Close() error
}

// Searcher finds the stored turns most similar to a query, best first.
type Searcher interface {
	Search(ctx context.Context, userID, query string, k int) ([]Scored, error)
}

// Query describes what the user just asked.
type Query struct {
	UserID    string
	SessionID string
	Text      string

	// Now anchors relative dates. Zero means time.Now().
	Now time.Time
}

// Recollection is rendered memory ready to be placed into a prompt.
type Recollection struct {
	// Text is the memory block. Empty when nothing was recalled.
	Text string

	// Items is how many turns or remote results contributed to Text.
	Items int

	// Dated reports whether relative dates were kept.
	Dated bool
}

// Empty reports whether there is nothing to inject.
func (r Recollection) Empty() bool {
	return r.Text == ""
}

// Exchange is one user message and the agent's reply.
type Exchange struct {
	UserID    string
	SessionID string
	UserText  string
	AgentText string
}

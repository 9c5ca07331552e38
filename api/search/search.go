// Package search provides shared similarity search over a user's stored
// turns. It is used by both the REST API endpoint and the MCP server tool.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
)

// DefaultTopK is used when a request does not set top_k.
const DefaultTopK = 5

// ErrInvalidInput is returned when the request is missing a user or query.
var ErrInvalidInput = errors.New("invalid search input")

// SearchInput represents the input arguments for a search request.
type SearchInput struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
	TopK   int    `json:"top_k,omitempty"`
}

// SearchResult represents a single matched turn.
type SearchResult struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`

	// When is the turn's date relative to the time of the search.
	When string `json:"when"`
}

// SearchOutput represents the output of a search operation.
type SearchOutput struct {
	UserID  string         `json:"user_id"`
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// Search runs a similarity search for one user. now anchors the relative
// dates in the results.
func Search(
	ctx context.Context,
	searcher memory.Searcher,
	input SearchInput,
	now time.Time,
	log *slog.Logger,
) (*SearchOutput, error) {
	log = logger.OrNop(log)

	if strings.TrimSpace(input.UserID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}

	topK := input.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	log.Debug("search request",
		"user_id", input.UserID,
		"query", input.Query,
		"top_k", topK,
	)

	scored, err := searcher.Search(ctx, input.UserID, input.Query, topK)
	if err != nil {
		return nil, fmt.Errorf("searching turns: %w", err)
	}

	results := make([]SearchResult, 0, len(scored))
	for _, s := range scored {
		results = append(results, BuildSearchResult(s, now))
	}

	return &SearchOutput{
		UserID:  input.UserID,
		Query:   input.Query,
		Results: results,
		Count:   len(results),
	}, nil
}

// BuildSearchResult converts a scored turn into a SearchResult.
func BuildSearchResult(s memory.Scored, now time.Time) SearchResult {
	return SearchResult{
		ID:        s.Turn.ID,
		SessionID: s.Turn.SessionID,
		Role:      string(s.Turn.Role),
		Text:      s.Turn.Text,
		Score:     s.Score,
		CreatedAt: s.Turn.CreatedAt,
		When:      memory.RelativeDay(s.Turn.CreatedAt, now),
	}
}

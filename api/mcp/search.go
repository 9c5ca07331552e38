package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apisearch "github.com/papercomputeco/recall/api/search"
)

var (
	memorySearchToolName    = "memory_search"
	memorySearchDescription = "Search a user's stored conversation turns by meaning. Returns the most similar turns, best match first, with their session, role and relative date."
)

// SearchInput represents the input arguments for the memory_search tool.
type SearchInput struct {
	UserID string `json:"user_id" jsonschema:"the user whose turns to search"`
	Query  string `json:"query" jsonschema:"the search query text"`
	TopK   int    `json:"top_k,omitempty" jsonschema:"number of results to return (default: 5)"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, apisearch.SearchOutput, error) {
	output, err := apisearch.Search(ctx, s.config.Searcher, apisearch.SearchInput{
		UserID: input.UserID,
		Query:  input.Query,
		TopK:   input.TopK,
	}, s.clock(), s.logger)
	if err != nil {
		s.logger.Error("MCP search failed", "user_id", input.UserID, "error", err)
		return errorResult(fmt.Sprintf("Search failed: %v", err)), apisearch.SearchOutput{}, nil
	}

	// Structured output is mirrored as JSON text for clients that only read
	// content blocks.
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), apisearch.SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, *output, nil
}

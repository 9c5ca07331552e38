package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/recall/pkg/memory"
)

var (
	memoryRecallToolName    = "memory_recall"
	memoryRecallDescription = "Recall what a user said in earlier conversations. Returns the memory block that would be injected into the next prompt for the given query, with relative dates when the query asks about time."
)

// MemoryRecallInput represents the input arguments for the MCP memory_recall tool.
type MemoryRecallInput struct {
	UserID string `json:"user_id" jsonschema:"the user whose memory to recall"`
	Query  string `json:"query,omitempty" jsonschema:"what the user is asking about; decides whether dates are included"`
}

// MemoryRecallOutput represents the structured output of a memory recall.
type MemoryRecallOutput struct {
	UserID string `json:"user_id"`
	Memory string `json:"memory"`
	Items  int    `json:"items"`
	Dated  bool   `json:"dated"`
}

// handleMemoryRecall processes a memory recall request via MCP.
func (s *Server) handleMemoryRecall(ctx context.Context, _ *mcp.CallToolRequest, input MemoryRecallInput) (*mcp.CallToolResult, MemoryRecallOutput, error) {
	if input.UserID == "" {
		return errorResult("user_id is required"), MemoryRecallOutput{}, nil
	}

	rec, err := s.config.Memory.Recall(ctx, memory.Query{
		UserID: input.UserID,
		Text:   input.Query,
		Now:    s.clock(),
	})
	if err != nil {
		s.logger.Error("memory recall failed", "user_id", input.UserID, "error", err)
		return errorResult(fmt.Sprintf("Memory recall failed: %v", err)), MemoryRecallOutput{}, nil
	}

	output := MemoryRecallOutput{
		UserID: input.UserID,
		Memory: rec.Text,
		Items:  rec.Items,
		Dated:  rec.Dated,
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), MemoryRecallOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

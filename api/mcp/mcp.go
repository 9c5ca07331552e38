// Package mcp provides an MCP (Model Context Protocol) server exposing
// recall's memory as tools.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/utils"
)

type Config struct {
	// Memory backs the memory_recall tool. Optional.
	Memory memory.Driver

	// Searcher backs the memory_search tool. Optional.
	Searcher memory.Searcher

	// Clock anchors relative dates in search results. Defaults to time.Now.
	Clock func() time.Time

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	logger    *slog.Logger
	clock     func() time.Time
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with a tool per configured backend.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
		logger: logger.OrNop(c.Logger),
		clock:  c.Clock,
	}
	if s.clock == nil {
		s.clock = time.Now
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "recall",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Memory == nil && c.Searcher == nil {
			return nil, errors.New("memory driver or searcher is required")
		}

		if c.Memory != nil {
			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        memoryRecallToolName,
				Description: memoryRecallDescription,
			}, s.handleMemoryRecall)
		}

		if c.Searcher != nil {
			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        memorySearchToolName,
				Description: memorySearchDescription,
			}, s.handleSearch)
		}
	}

	s.mcpServer = mcpServer

	// Stateless streamable HTTP handler
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/metrics"
)

// Server is the API server for querying recall's memory.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server. The memory driver and searcher are
// injected so the server shares them with the rest of the process.
func NewServer(config Config, log *slog.Logger) (*Server, error) {
	if config.Memory == nil {
		return nil, errors.New("memory driver is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger.OrNop(log),
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/memory/:user_id", s.handleMemory)
	app.Get("/v1/search", s.handleSearchEndpoint)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.OrNop(config.Metrics).Handler()))

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/pkg/memory"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MemoryResponse is what Before would inject for the query.
type MemoryResponse struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
	Memory string `json:"memory"`
	Items  int    `json:"items"`
	Dated  bool   `json:"dated"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleMemory handles GET /v1/memory/:user_id?query=
func (s *Server) handleMemory(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "user_id parameter required"})
	}
	query := c.Query("query")

	rec, err := s.config.Memory.Recall(c.UserContext(), memory.Query{
		UserID: userID,
		Text:   query,
		Now:    s.now(),
	})
	if err != nil {
		s.logger.Warn("memory recall failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "memory recall failed"})
	}

	return c.JSON(MemoryResponse{
		UserID: userID,
		Query:  query,
		Memory: rec.Text,
		Items:  rec.Items,
		Dated:  rec.Dated,
	})
}

func (s *Server) now() time.Time {
	if s.config.Clock != nil {
		return s.config.Clock()
	}
	return time.Now()
}

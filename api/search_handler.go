package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	apisearch "github.com/papercomputeco/recall/api/search"
)

// handleSearchEndpoint handles GET /v1/search requests.
// Query parameters:
//   - user_id (required): whose turns to search
//   - query (required): the search query text
//   - top_k (optional, default 5): number of results to return
func (s *Server) handleSearchEndpoint(c *fiber.Ctx) error {
	if s.config.Searcher == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "search is not configured: storage.embeddings and an embedder are required",
		})
	}

	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "user_id parameter is required",
		})
	}

	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query parameter is required",
		})
	}

	topK := apisearch.DefaultTopK
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		topK = parsed
	}

	output, err := apisearch.Search(c.UserContext(), s.config.Searcher, apisearch.SearchInput{
		UserID: userID,
		Query:  query,
		TopK:   topK,
	}, s.now(), s.logger)
	if err != nil {
		if errors.Is(err, apisearch.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		}
		s.logger.Warn("search failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(output)
}

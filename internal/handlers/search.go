package handlers

import (
	"regdesk/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SearchHandler serves the free-text search endpoint.
type SearchHandler struct {
	search *services.SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search *services.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// Handle runs one search for the authenticated user
// GET /api/search?q=term
func (h *SearchHandler) Handle(c *fiber.Ctx) error {
	principal, _ := c.Locals("user_id").(string)
	if principal == "" {
		principal = c.IP()
	}

	results, err := h.search.Search(c.Context(), principal, c.Query("q"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(results)
}

package handlers

import (
	"regdesk/internal/sources"

	"github.com/gofiber/fiber/v2"
)

// SourceHandler lists the registered circular sources for the sidebar.
type SourceHandler struct {
	registry *sources.Registry
}

// NewSourceHandler creates a new source handler
func NewSourceHandler(registry *sources.Registry) *SourceHandler {
	return &SourceHandler{registry: registry}
}

// List returns all registered sources
// GET /api/sources
func (h *SourceHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"sources": h.registry.List(),
	})
}

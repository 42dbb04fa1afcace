package handlers

import (
	"context"
	"time"

	"regdesk/internal/database"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db *database.MongoDB
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.MongoDB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Handle responds with server health status including store reachability
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":    "degraded",
			"store":     "unreachable",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{
		"status":    "healthy",
		"store":     "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

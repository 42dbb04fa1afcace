package handlers

import (
	"context"
	"errors"

	"regdesk/internal/dates"
	"regdesk/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CircularHandler serves the circular list and detail endpoints plus the
// cache invalidation hooks.
type CircularHandler struct {
	circulars *services.CircularService
	details   *services.DetailService
}

// NewCircularHandler creates a new circular handler
func NewCircularHandler(circulars *services.CircularService, details *services.DetailService) *CircularHandler {
	return &CircularHandler{circulars: circulars, details: details}
}

// List returns one page of a source's circulars
// GET /api/circulars/:source?page=1&min_date=01-01-2024
func (h *CircularHandler) List(c *fiber.Ctx) error {
	source := c.Params("source")
	page := c.QueryInt("page", 1)

	var minDate dates.Date
	if raw := c.Query("min_date"); raw != "" {
		minDate = dates.Parse(raw)
		if !minDate.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "min_date must be DD-MM-YYYY or 'Mon DD, YYYY'",
			})
		}
	}

	result, err := h.circulars.ListPage(c.Context(), source, page, minDate)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(result)
}

// Detail returns the composed view for one circular
// GET /api/circulars/:source/:id
func (h *CircularHandler) Detail(c *fiber.Ctx) error {
	source := c.Params("source")
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "circular id is required",
		})
	}

	detail, err := h.details.GetDetail(c.Context(), source, id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(detail)
}

// InvalidateSource drops every cached page view of a source
// POST /api/cache/circulars/:source/invalidate
func (h *CircularHandler) InvalidateSource(c *fiber.Ctx) error {
	source := c.Params("source")
	removed := h.circulars.InvalidateSource(source)
	return c.JSON(fiber.Map{
		"source":    source,
		"entries":   removed,
		"refreshed": false,
	})
}

// InvalidateDetail drops (and optionally recomposes) one cached detail view
// POST /api/cache/circulars/:source/:id/invalidate?refresh=true
func (h *CircularHandler) InvalidateDetail(c *fiber.Ctx) error {
	source := c.Params("source")
	id := c.Params("id")

	if c.QueryBool("refresh", false) {
		detail, err := h.details.Refresh(c.Context(), source, id)
		if err != nil {
			return storeError(c, err)
		}
		return c.JSON(detail)
	}

	existed := h.details.Invalidate(source, id)
	return c.JSON(fiber.Map{
		"source":  source,
		"id":      id,
		"existed": existed,
	})
}

// storeError maps service errors onto the HTTP surface.
func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not_found",
		})
	case errors.Is(err, services.ErrUnknownSource):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown_source",
		})
	case errors.Is(err, services.ErrUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":     "store_unavailable",
			"retryable": true,
		})
	case errors.Is(err, context.Canceled):
		// The client went away or superseded this request.
		return c.SendStatus(fiber.StatusNoContent)
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal_error",
		})
	}
}

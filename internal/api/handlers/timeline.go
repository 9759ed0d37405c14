/**
 * @description
 * Timeline API handler.
 * Exposes per-product bucketed price history for charting.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"errors"
	"time"

	"github.com/cardvault-project/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// dateLayouts accepted for the start/end query params.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

type TimelineHandler struct {
	Service *services.TimelineService
}

func NewTimelineHandler(service *services.TimelineService) *TimelineHandler {
	return &TimelineHandler{Service: service}
}

// GetTimeline returns bucketed price aggregates for a product.
// GET /api/v1/products/:id/timeline?start=...&end=...&interval=1d
func (h *TimelineHandler) GetTimeline(c *fiber.Ctx) error {
	ctx := c.Context()

	productID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid product id",
		})
	}

	start, ok := parseDateParam(c.Query("start"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing or malformed start date",
		})
	}

	end := time.Now().UTC()
	if raw := c.Query("end"); raw != "" {
		end, ok = parseDateParam(raw)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Malformed end date",
			})
		}
	}

	interval, err := services.ParseBucketInterval(c.Query("interval", string(services.Interval1Day)))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Interval must be one of 1h, 6h, 12h, 1d, 1w, 1mo",
		})
	}

	timeline, err := h.Service.GetPriceTimeline(ctx, productID, start, end, interval)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProductNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Product not found",
			})
		case errors.Is(err, services.ErrInvalidRange):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Start date must be before end date",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to build timeline",
			})
		}
	}

	return c.JSON(timeline)
}

func parseDateParam(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fuelcast/fuelcast/internal/models"
	"github.com/fuelcast/fuelcast/internal/utils"
)

// Root describes the API
func (h *Handler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Thai Fuel Price Forecasting API",
		"version": Version,
		"endpoints": []string{
			"GET /health",
			"POST /v1/upload-csv",
			"POST /v1/prices",
			"GET /v1/prices/latest",
			"POST /v1/generate-sample-data",
			"POST /v1/train",
			"POST /v1/predict",
			"GET /v1/search",
			"GET /v1/models/:fuel_type",
		},
	})
}

// Health reports whether the vector store is reachable
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), utils.HealthCheckTimeout)
	defer cancel()

	status, store := "healthy", "connected"
	if err := h.prices.Ping(ctx); err != nil {
		h.logger.Warn("Vector store health check failed", "error", err)
		status, store = "degraded", "disconnected"
	}

	return c.JSON(models.HealthResponse{
		Status:      status,
		VectorStore: store,
		Timestamp:   time.Now().Format(time.RFC3339),
		Version:     Version,
	})
}

// NotFound handles 404 errors
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "Route not found",
			Path:    c.Path(),
		},
	})
}

// Package handlers implements the HTTP API on top of the price and forecast services.
package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/models"
	"github.com/fuelcast/fuelcast/internal/queue"
	"github.com/fuelcast/fuelcast/internal/services"
	"github.com/fuelcast/fuelcast/internal/utils"
	"github.com/fuelcast/fuelcast/internal/worker"
)

// Version is reported by the root and health endpoints
const Version = "1.0.0"

// Handler contains all HTTP handlers
type Handler struct {
	logger    *logging.Logger
	prices    *services.PriceService
	forecasts *services.ForecastService
	jobs      *queue.JobPublisher // nil disables async training
	results   JobResults          // nil hides background job outcomes
}

// JobResults reports the outcome of background training jobs
type JobResults interface {
	LastResult(ft models.FuelType) (worker.JobResult, bool)
}

// New creates a new handler instance
func New(logger *logging.Logger, prices *services.PriceService, forecasts *services.ForecastService, jobs *queue.JobPublisher, results JobResults) *Handler {
	return &Handler{
		logger:    logger,
		prices:    prices,
		forecasts: forecasts,
		jobs:      jobs,
		results:   results,
	}
}

// requestContext bounds a handler's store calls by the default request timeout
func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), utils.DefaultRequestTimeout)
}

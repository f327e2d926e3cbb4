package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fuelcast/fuelcast/internal/middleware"
	"github.com/fuelcast/fuelcast/internal/models"
	"github.com/fuelcast/fuelcast/internal/queue"
	"github.com/fuelcast/fuelcast/internal/utils"
)

// Train trains a fuel type's model. With async set the job is queued for the
// training worker and 202 is returned.
// POST /v1/train
func (h *Handler) Train(c *fiber.Ctx) error {
	var req models.TrainingRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}

	ft, err := models.ParseFuelType(req.FuelType)
	if err != nil {
		return err
	}

	if req.Async {
		return h.enqueueTraining(c, ft, req.Retrain)
	}

	// Training runs to completion; only the client disconnecting cancels it.
	resp, err := h.forecasts.TrainFuel(c.UserContext(), ft, req.Retrain)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *Handler) enqueueTraining(c *fiber.Ctx, ft models.FuelType, retrain bool) error {
	if h.jobs == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "asynchronous training is not enabled")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), utils.PublishTimeout)
	defer cancel()

	job, err := h.jobs.Enqueue(ctx, ft, retrain, queue.SourceAPI)
	if err != nil {
		return fmt.Errorf("enqueueing %s training job: %w", ft, err)
	}

	h.logger.Info("Training job queued", "job_id", job.ID, "fuel_type", ft, "retrain", retrain)
	return c.Status(fiber.StatusAccepted).JSON(models.TrainingJobResponse{
		Status:   "queued",
		JobID:    job.ID,
		FuelType: string(ft),
	})
}

// Predict forecasts daily prices
// POST /v1/predict
func (h *Handler) Predict(c *fiber.Ctx) error {
	var req models.PredictionRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}

	ft, err := models.ParseFuelType(req.FuelType)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.forecasts.PredictFuel(ctx, ft, req.Days)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// ModelDetails describes a fuel type's persisted model, its training history
// and the last background training job
// GET /v1/models/:fuel_type
func (h *Handler) ModelDetails(c *fiber.Ctx) error {
	ft, err := models.ParseFuelType(c.Params("fuel_type"))
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.forecasts.ModelDetails(ctx, ft)
	if err != nil {
		return err
	}

	if h.results != nil {
		if r, ok := h.results.LastResult(ft); ok {
			resp.LastJob = &models.TrainingJobStatus{
				JobID:      r.JobID,
				Status:     r.Status,
				Error:      r.Error,
				FinishedAt: r.FinishedAt.Format(time.RFC3339),
			}
		}
	}
	return c.JSON(resp)
}

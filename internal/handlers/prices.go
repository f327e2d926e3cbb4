package handlers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fuelcast/fuelcast/internal/middleware"
	"github.com/fuelcast/fuelcast/internal/models"
)

// UploadCSV handles a multipart CSV price upload
// POST /v1/upload-csv
func (h *Handler) UploadCSV(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart field 'file' is required")
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		return fiber.NewError(fiber.StatusBadRequest, "Only CSV files are allowed")
	}

	f, err := header.Open()
	if err != nil {
		return fmt.Errorf("opening upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.prices.Upload(ctx, f)
	if err != nil {
		return err
	}

	h.logger.Info("CSV uploaded", "file", header.Filename, "size", header.Size, "records", resp.Records)
	return c.JSON(resp)
}

// AddPrice stores one dated observation
// POST /v1/prices
func (h *Handler) AddPrice(c *fiber.Ctx) error {
	var req models.PriceRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.prices.AddObservation(ctx, &req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// LatestPrices returns the most recent price of every fuel type
// GET /v1/prices/latest
func (h *Handler) LatestPrices(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.prices.LatestPrices(ctx)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// GenerateSampleData stores a synthetic price table
// POST /v1/generate-sample-data
func (h *Handler) GenerateSampleData(c *fiber.Ctx) error {
	var req models.SampleDataRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}

	start, err := time.Parse(time.DateOnly, req.StartDate)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("start_date %q is not YYYY-MM-DD", req.StartDate))
	}
	end, err := time.Parse(time.DateOnly, req.EndDate)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("end_date %q is not YYYY-MM-DD", req.EndDate))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.prices.GenerateSample(ctx, start, end, req.Seed)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Search finds stored dates with a price similar to the query price
// GET /v1/search?price=31.5&fuel_type=diesel&limit=10
func (h *Handler) Search(c *fiber.Ctx) error {
	var q models.SearchQuery
	if err := middleware.BindQueryAndValidate(c, &q); err != nil {
		return err
	}

	ft, err := models.ParseFuelType(q.FuelType)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.prices.Search(ctx, q.Price, ft, q.Limit)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

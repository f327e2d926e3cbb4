package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fuelcast/fuelcast/internal/config"
	"github.com/fuelcast/fuelcast/internal/handlers"
	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/metrics"
	"github.com/fuelcast/fuelcast/internal/middleware"
)

// Setup configures all routes and middlewares. recorder and gatherer may be
// nil, which disables request metrics and the exposition route.
func Setup(app *fiber.App, logger *logging.Logger, h *handlers.Handler, recorder *metrics.Recorder, gatherer prometheus.Gatherer, cfg config.Config) {
	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))
	app.Use(logging.FiberMiddlewareWithConfig(logger, logging.MiddlewareConfig{
		SkipPaths: []string{"/health", cfg.Metrics.Path},
	}))

	metricsEnabled := cfg.Metrics.Enabled && gatherer != nil
	if metricsEnabled {
		app.Use(recorder.FiberMiddleware())
	}

	app.Get("/", h.Root)
	app.Get("/health", h.Health)
	if metricsEnabled {
		app.Get(cfg.Metrics.Path, metrics.Handler(gatherer))
	}

	v1 := app.Group("/v1")

	// Price data
	v1.Post("/upload-csv", h.UploadCSV)
	v1.Post("/prices", h.AddPrice)
	v1.Get("/prices/latest", h.LatestPrices)
	v1.Post("/generate-sample-data", h.GenerateSampleData)
	v1.Get("/search", h.Search)

	// Models
	v1.Post("/train", h.Train)
	v1.Post("/predict", h.Predict)
	v1.Get("/models/:fuel_type", h.ModelDetails)

	// 404 handler
	app.Use(h.NotFound)
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, h *handlers.Handler, recorder *metrics.Recorder, gatherer prometheus.Gatherer, cfg config.Config) *fiber.App {
	bodyLimit := cfg.Server.BodyLimitMB * 1024 * 1024
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		AppName:               "Fuelcast API",
		DisableStartupMessage: !cfg.IsDevelopment(),
		BodyLimit:             bodyLimit,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, h, recorder, gatherer, cfg)

	return app
}

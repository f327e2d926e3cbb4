package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fuelcast/fuelcast/internal/config"
	"github.com/fuelcast/fuelcast/internal/embedding"
	"github.com/fuelcast/fuelcast/internal/handlers"
	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/metrics"
	"github.com/fuelcast/fuelcast/internal/models"
	"github.com/fuelcast/fuelcast/internal/pricestore"
	"github.com/fuelcast/fuelcast/internal/queue"
	"github.com/fuelcast/fuelcast/internal/router"
	"github.com/fuelcast/fuelcast/internal/services"
	"github.com/fuelcast/fuelcast/internal/utils"
	"github.com/fuelcast/fuelcast/internal/worker"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("API service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Fatal("Failed to create directories", "error", err)
	}

	recorder := metrics.New(prometheus.DefaultRegisterer)

	// Embedding backend and price store
	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		logger.Fatal("Failed to create embedder", "error", err)
	}

	logger.Info("Connecting to price store", "type", cfg.Store.Type, "collection", cfg.Store.Collection)
	if cfg.IsDevelopment() {
		logger.Debug("Development mode", "qdrant", cfg.Store.GetQdrantAddress(), "models_dir", cfg.Models.Dir)
	}
	store, err := pricestore.New(cfg.Store, embedder, logger)
	if err != nil {
		logger.Fatal("Failed to create price store", "error", err)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultRequestTimeout)
	err = store.EnsureCollection(ctx)
	cancel()
	if err != nil {
		logger.Fatal("Failed to provision collections", "error", err)
	}

	// Services
	strategy, err := cfg.Training.Strategy()
	if err != nil {
		logger.Fatal("Invalid model families", "error", err)
	}
	logger.Info("Model families selected", "primary", cfg.Training.PrimaryModel, "fallback", cfg.Training.FallbackModel)

	prices := services.NewPriceService(logger, store, cfg.Store.ScanLimit, recorder)
	forecasts := services.NewForecastService(logger, store, services.NewModelRepository(cfg.Models.Dir), services.ForecastOptions{
		Config:     cfg.Training.ForecastConfig(),
		Strategy:   strategy,
		Confidence: cfg.Training.Confidence,
		ScanLimit:  cfg.Store.ScanLimit,
		Metrics:    recorder,
	})

	// Connect to Queue (configurable backend)
	logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
	queueClient, err := queue.NewQueue(cfg.Queue, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Queue", "error", err)
	}
	defer func() { _ = queueClient.Close() }()
	logger.Info("Queue connected", "backend", queueClient.Backend(), "subject", cfg.Queue.Subject)
	jobs := queue.NewJobPublisher(queueClient, cfg.Queue.Subject)

	trainingWorker := worker.NewTrainingWorker(logger, queueClient, cfg.Queue.Subject, forecasts, recorder)
	if err := trainingWorker.Start(); err != nil {
		logger.Fatal("Failed to start training worker", "error", err)
	}

	var scheduler *worker.Scheduler
	if cfg.Training.RetrainCron != "" {
		fuelTypes := make([]models.FuelType, 0, len(cfg.Training.FuelTypes))
		for _, s := range cfg.Training.FuelTypes {
			ft, err := models.ParseFuelType(s)
			if err != nil {
				logger.Fatal("Invalid scheduled fuel type", "error", err)
			}
			fuelTypes = append(fuelTypes, ft)
		}

		scheduler, err = worker.NewScheduler(logger, jobs, cfg.Training.RetrainCron, fuelTypes)
		if err != nil {
			logger.Fatal("Failed to create retrain scheduler", "error", err)
		}
		scheduler.Start()
	}

	// Initialize router
	h := handlers.New(logger, prices, forecasts, jobs, trainingWorker)
	app := router.New(logger, h, recorder, prometheus.DefaultGatherer, *cfg)

	// Start server in goroutine
	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}
	if err := trainingWorker.Stop(); err != nil {
		logger.Error("Failed to stop training worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), utils.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

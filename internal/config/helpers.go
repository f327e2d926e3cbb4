package config

import (
	"fmt"
	"os"

	"github.com/fuelcast/fuelcast/internal/analytics/forecast"
)

// EnsureDirectories ensures all required directories exist
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Models.Dir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

// GetQdrantAddress returns the vector database gRPC address
func (c *StoreConfig) GetQdrantAddress() string {
	return fmt.Sprintf("%s:%d", c.Qdrant.Host, c.Qdrant.Port)
}

// ForecastConfig converts the training section into model fitting parameters
func (c *TrainingConfig) ForecastConfig() forecast.ForecastConfig {
	fc := forecast.DefaultForecastConfig()
	fc.Order = c.Order
	fc.SeasonalOrder = c.SeasonalOrder
	if c.SeasonalOrder.Period > 0 {
		fc.SeasonalPeriod = c.SeasonalOrder.Period
	}
	if c.MaxIterations > 0 {
		fc.MaxIterations = c.MaxIterations
	}
	if c.MinObservations > 0 {
		fc.MinDataPoints = c.MinObservations
	}
	return fc
}

// Strategy resolves the configured model families. A fallback of "none"
// disables the fallback stage.
func (c *TrainingConfig) Strategy() (forecast.Strategy, error) {
	fallback := forecast.Kind(c.FallbackModel)
	if c.FallbackModel == FallbackNone {
		fallback = ""
	}
	return forecast.StrategyFor(forecast.Kind(c.PrimaryModel), fallback)
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/fuelcast/fuelcast/internal/analytics/forecast"
)

// Load loads configuration from file, the environment and an optional .env file
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load() // ignore missing file

	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")             // Current directory
		v.AddConfigPath("./configs")     // Project configs directory
		v.AddConfigPath("./config")      // Alternative config directory
		v.AddConfigPath("/etc/fuelcast") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides, FUELCAST_STORE_QDRANT_HOST -> store.qdrant.host
	v.SetEnvPrefix("FUELCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server defaults
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.body_limit_mb", d.Server.BodyLimitMB)

	// Store defaults
	v.SetDefault("store.type", d.Store.Type)
	v.SetDefault("store.collection", d.Store.Collection)
	v.SetDefault("store.vector_size", d.Store.VectorSize)
	v.SetDefault("store.batch_size", d.Store.BatchSize)
	v.SetDefault("store.scan_limit", d.Store.ScanLimit)
	v.SetDefault("store.similar_scan_limit", d.Store.SimilarScanLimit)
	v.SetDefault("store.similar_max_difference", d.Store.SimilarMaxDifference)
	v.SetDefault("store.qdrant.host", d.Store.Qdrant.Host)
	v.SetDefault("store.qdrant.port", d.Store.Qdrant.Port)
	v.SetDefault("store.qdrant.api_key", "")
	v.SetDefault("store.qdrant.use_tls", false)

	// Embedding defaults
	v.SetDefault("embedding.type", d.Embedding.Type)
	v.SetDefault("embedding.url", d.Embedding.URL)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimension", d.Embedding.Dimension)
	v.SetDefault("embedding.timeout", d.Embedding.Timeout.String())

	// Model persistence defaults
	v.SetDefault("models.dir", d.Models.Dir)

	// Training defaults
	v.SetDefault("training.order.p", d.Training.Order.P)
	v.SetDefault("training.order.d", d.Training.Order.D)
	v.SetDefault("training.order.q", d.Training.Order.Q)
	v.SetDefault("training.seasonal_order.p", d.Training.SeasonalOrder.P)
	v.SetDefault("training.seasonal_order.d", d.Training.SeasonalOrder.D)
	v.SetDefault("training.seasonal_order.q", d.Training.SeasonalOrder.Q)
	v.SetDefault("training.seasonal_order.period", d.Training.SeasonalOrder.Period)
	v.SetDefault("training.min_observations", d.Training.MinObservations)
	v.SetDefault("training.max_iterations", d.Training.MaxIterations)
	v.SetDefault("training.confidence", d.Training.Confidence)
	v.SetDefault("training.primary_model", d.Training.PrimaryModel)
	v.SetDefault("training.fallback_model", d.Training.FallbackModel)
	v.SetDefault("training.retrain_cron", "")
	v.SetDefault("training.fuel_types", d.Training.FuelTypes)

	// Queue defaults
	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.subject", d.Queue.Subject)

	// Metrics defaults
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Return default configuration
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	fc := forecast.DefaultForecastConfig()
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			HTTPPort:    8000,
			BodyLimitMB: 16,
		},
		Store: StoreConfig{
			Type:                 "qdrant",
			Collection:           "oil_prices_eppo",
			VectorSize:           384,
			BatchSize:            100,
			ScanLimit:            10000,
			SimilarScanLimit:     1000,
			SimilarMaxDifference: 5,
			Qdrant: QdrantConfig{
				Host: "localhost",
				Port: 6334,
			},
		},
		Embedding: EmbeddingConfig{
			Type:      "http",
			URL:       "http://localhost:8080/embed",
			Model:     "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2",
			Dimension: 384,
			Timeout:   30 * time.Second,
		},
		Models: ModelsConfig{
			Dir: "./models",
		},
		Training: TrainingConfig{
			Order:           fc.Order,
			SeasonalOrder:   fc.SeasonalOrder,
			MinObservations: fc.MinDataPoints,
			MaxIterations:   fc.MaxIterations,
			Confidence:      0.95,
			PrimaryModel:    string(forecast.KindSeasonalARIMA),
			FallbackModel:   string(forecast.KindExponentialSmoothing),
			FuelTypes:       []string{"diesel", "gasohol_95", "gasohol_91", "lpg"},
		},
		Queue: QueueConfig{
			Type:    "memory",
			URL:     "nats://localhost:4222",
			Subject: "fuelcast.train",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}

package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fuelcast/fuelcast/internal/analytics/forecast"
	"github.com/fuelcast/fuelcast/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Models    ModelsConfig    `mapstructure:"models"`
	Training  TrainingConfig  `mapstructure:"training"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host        string `mapstructure:"host"`          // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort    int    `mapstructure:"http_port"`     // HTTP server port
	BodyLimitMB int    `mapstructure:"body_limit_mb"` // Max request body, covers CSV uploads
}

// StoreConfig represents price store configuration
type StoreConfig struct {
	Type                 string       `mapstructure:"type"`                   // qdrant (default) or memory
	Collection           string       `mapstructure:"collection"`             // Primary price collection
	VectorSize           int          `mapstructure:"vector_size"`            // Embedding dimension of the collection
	BatchSize            int          `mapstructure:"batch_size"`             // Points per upsert request
	ScanLimit            int          `mapstructure:"scan_limit"`             // Max points read by series retrieval
	SimilarScanLimit     int          `mapstructure:"similar_scan_limit"`     // Max points compared by similarity search
	SimilarMaxDifference float64      `mapstructure:"similar_max_difference"` // Max price gap of a similar result, 0 disables
	Qdrant               QdrantConfig `mapstructure:"qdrant"`
}

// QdrantConfig holds the vector database connection settings
type QdrantConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"` // gRPC port
	APIKey string `mapstructure:"api_key"`
	UseTLS bool   `mapstructure:"use_tls"`
}

// EmbeddingConfig selects the sentence-embedding backend
type EmbeddingConfig struct {
	Type      string        `mapstructure:"type"` // http or hash
	URL       string        `mapstructure:"url"`  // Embedding server endpoint for type http
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ModelsConfig represents trained-model persistence
type ModelsConfig struct {
	Dir string `mapstructure:"dir"`
}

// TrainingConfig holds forecasting parameters and the retraining schedule
type TrainingConfig struct {
	Order           forecast.Order         `mapstructure:"order"`
	SeasonalOrder   forecast.SeasonalOrder `mapstructure:"seasonal_order"`
	MinObservations int                    `mapstructure:"min_observations"`
	MaxIterations   int                    `mapstructure:"max_iterations"`
	Confidence      float64                `mapstructure:"confidence"`
	PrimaryModel    string                 `mapstructure:"primary_model"`  // Model family tried first
	FallbackModel   string                 `mapstructure:"fallback_model"` // Used when the primary fit fails, "none" disables
	RetrainCron     string                 `mapstructure:"retrain_cron"`   // Empty disables scheduled retraining
	FuelTypes       []string               `mapstructure:"fuel_types"`     // Fuel types retrained by the scheduler
}

// FallbackNone disables the fallback model family
const FallbackNone = "none"

// QueueConfig represents training job queue configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // Queue type: memory (default), nats, redis, kafka
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication
	Subject  string `mapstructure:"subject"`  // Subject/topic carrying training jobs

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`       // Redis database number (default: 0)
	RedisStream   string `mapstructure:"redis_stream"`   // Redis stream prefix (default: "fuelcast")
	RedisGroup    string `mapstructure:"redis_group"`    // Redis consumer group (default: "fuelcast-group")
	RedisConsumer string `mapstructure:"redis_consumer"` // Redis consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`  // Kafka broker addresses
	KafkaGroupID string   `mapstructure:"kafka_group_id"` // Kafka consumer group ID
}

// MetricsConfig represents Prometheus exposition
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, UnixMs, etc
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config: %w", err)
	}

	if err := c.Embedding.Validate(); err != nil {
		return fmt.Errorf("embedding config: %w", err)
	}

	if c.Embedding.Dimension != c.Store.VectorSize {
		return fmt.Errorf("embedding.dimension (%d) must match store.vector_size (%d)",
			c.Embedding.Dimension, c.Store.VectorSize)
	}

	if c.Models.Dir == "" {
		return fmt.Errorf("models config: dir is required")
	}

	if err := c.Training.Validate(); err != nil {
		return fmt.Errorf("training config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.BodyLimitMB < 0 {
		return fmt.Errorf("body_limit_mb cannot be negative")
	}

	return nil
}

// Validate validates store configuration
func (c *StoreConfig) Validate() error {
	switch c.Type {
	case "qdrant":
		if c.Qdrant.Host == "" {
			return fmt.Errorf("qdrant.host is required")
		}
		if c.Qdrant.Port < 1 || c.Qdrant.Port > 65535 {
			return fmt.Errorf("invalid qdrant.port: %d", c.Qdrant.Port)
		}
	case "memory":
	default:
		return fmt.Errorf("store.type must be 'qdrant' or 'memory'")
	}

	if c.Collection == "" {
		return fmt.Errorf("store.collection is required")
	}

	if c.VectorSize <= 0 {
		return fmt.Errorf("store.vector_size must be positive")
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("store.batch_size must be positive")
	}

	if c.ScanLimit <= 0 || c.SimilarScanLimit <= 0 {
		return fmt.Errorf("store scan limits must be positive")
	}

	if c.SimilarMaxDifference < 0 {
		return fmt.Errorf("store.similar_max_difference cannot be negative")
	}

	return nil
}

// Validate validates embedding configuration
func (c *EmbeddingConfig) Validate() error {
	switch c.Type {
	case "http":
		if c.URL == "" {
			return fmt.Errorf("embedding.url is required for type http")
		}
	case "hash":
	default:
		return fmt.Errorf("embedding.type must be 'http' or 'hash'")
	}

	if c.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive")
	}

	return nil
}

// Validate validates training configuration
func (c *TrainingConfig) Validate() error {
	for _, v := range []int{c.Order.P, c.Order.D, c.Order.Q, c.SeasonalOrder.P, c.SeasonalOrder.D, c.SeasonalOrder.Q} {
		if v < 0 {
			return fmt.Errorf("model orders cannot be negative")
		}
	}

	if c.SeasonalOrder.Period < 0 {
		return fmt.Errorf("seasonal_order.period cannot be negative")
	}

	if c.MinObservations < 1 {
		return fmt.Errorf("min_observations must be at least 1")
	}

	if c.Confidence <= 0 || c.Confidence >= 1 {
		return fmt.Errorf("confidence must be in (0, 1)")
	}

	if _, err := forecast.GetTrainer(forecast.Kind(c.PrimaryModel)); err != nil {
		return fmt.Errorf("primary_model: %w (available: %v)", err, forecast.ListTrainers())
	}
	if c.FallbackModel != FallbackNone {
		if _, err := forecast.GetTrainer(forecast.Kind(c.FallbackModel)); err != nil {
			return fmt.Errorf("fallback_model: %w (available: %v)", err, forecast.ListTrainers())
		}
	}

	for _, ft := range c.FuelTypes {
		if _, err := models.ParseFuelType(ft); err != nil {
			return err
		}
	}

	if c.RetrainCron != "" {
		if _, err := cron.ParseStandard(c.RetrainCron); err != nil {
			return fmt.Errorf("invalid retrain_cron: %w", err)
		}
	}

	return nil
}

// Validate validates queue configuration
func (c *QueueConfig) Validate() error {
	switch c.Type {
	case "memory", "nats", "redis", "kafka":
	default:
		return fmt.Errorf("queue.type must be one of: memory, nats, redis, kafka")
	}

	if c.Subject == "" {
		return fmt.Errorf("queue.subject is required")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}

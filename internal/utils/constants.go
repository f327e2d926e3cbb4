package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// HTTP Handler Timeouts
const (
	// DefaultRequestTimeout is the default timeout for HTTP requests
	DefaultRequestTimeout = 30 * time.Second

	// HealthCheckTimeout bounds the vector store ping of the health endpoint
	HealthCheckTimeout = 3 * time.Second

	// ShutdownTimeout is how long in-flight requests and jobs get on shutdown
	ShutdownTimeout = 10 * time.Second
)

// Queue Timeouts
const (
	// PublishTimeout bounds publishing one training job
	PublishTimeout = 5 * time.Second

	// JobTimeout bounds store reads and writes made while running one training job
	JobTimeout = 10 * time.Minute
)

// =============================================================================
// Forecast Constants
// =============================================================================

const (
	// DefaultForecastHorizon is the number of days predicted when none is requested
	DefaultForecastHorizon = 7

	// MaxForecastHorizon is the longest horizon served
	MaxForecastHorizon = 30

	// ModelHistoryLimit is the number of training records shown per fuel type
	ModelHistoryLimit = 10

	// PriceDecimals is the precision of prices returned to callers
	PriceDecimals = 2
)

// =============================================================================
// Search Constants
// =============================================================================

const (
	// DefaultSearchLimit is the number of similar prices returned by default
	DefaultSearchLimit = 10

	// MaxSearchLimit is the largest accepted similar-price limit
	MaxSearchLimit = 100
)

// =============================================================================
// Sample Data Constants
// =============================================================================

const (
	// DefaultSampleStart is the first date of generated sample data
	DefaultSampleStart = "2024-01-01"

	// DefaultSampleSeed seeds the sample data generator
	DefaultSampleSeed = 42
)

// =============================================================================
// Queue Type Constants
// =============================================================================
// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNATS represents NATS JetStream queue
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-process queue (default)
	QueueTypeMemory QueueType = "memory"
)

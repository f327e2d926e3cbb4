package queue

import (
	"fmt"
	"strings"

	"github.com/fuelcast/fuelcast/internal/config"
	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/utils"
)

// NewQueue creates a new Queue instance based on configuration.
// Default is the in-process memory queue if type is not specified.
func NewQueue(cfg config.QueueConfig, logger *logging.Logger) (Queue, error) {
	queueType := utils.QueueType(strings.ToLower(cfg.Type))
	if queueType == "" {
		queueType = utils.QueueTypeMemory
	}

	switch queueType {
	case utils.QueueTypeNATS:
		return newNATSQueue(NATSConfig{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
		}, logger)

	case utils.QueueTypeRedis:
		return newRedisQueue(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
			Group:    cfg.RedisGroup,
			Consumer: cfg.RedisConsumer,
		}, logger)

	case utils.QueueTypeKafka:
		return newKafkaQueue(KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
		}, logger)

	case utils.QueueTypeMemory:
		return newMemoryQueue(logger), nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: memory, nats, redis, kafka)", queueType)
	}
}

package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/utils"
)

// RedisConfig represents Redis Streams configuration
type RedisConfig struct {
	URL      string // Redis URL (e.g., redis://localhost:6379) or host:port
	Password string // Optional password
	DB       int    // Database number (default: 0)
	Stream   string // Stream prefix (default: "fuelcast")
	Group    string // Consumer group name (default: "fuelcast-group")
	Consumer string // Consumer name (default: hostname)
}

// withDefaults fills unset fields
func (c RedisConfig) withDefaults() RedisConfig {
	if c.Stream == "" {
		c.Stream = "fuelcast"
	}
	if c.Group == "" {
		c.Group = "fuelcast-group"
	}
	if c.Consumer == "" {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "consumer-1"
		}
		c.Consumer = hostname
	}
	return c
}

// RedisQueue implements Queue interface using Redis Streams
type RedisQueue struct {
	logger        *logging.Logger
	client        *redis.Client
	config        RedisConfig
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.RWMutex
}

// newRedisQueue connects to Redis and checks the connection
func newRedisQueue(cfg RedisConfig, logger *logging.Logger) (*RedisQueue, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{Addr: cfg.URL}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if logger == nil {
		logger = logging.Global()
	}

	return &RedisQueue{
		logger:        logger,
		client:        client,
		config:        cfg.withDefaults(),
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

// streamName converts a subject to a Redis stream name
func (q *RedisQueue) streamName(subject string) string {
	return fmt.Sprintf("%s:%s", q.config.Stream, subject)
}

// Publish appends a message to the stream of subject
func (q *RedisQueue) Publish(ctx context.Context, subject string, data []byte) error {
	stream := q.streamName(subject)

	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{"data": data},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", stream, err)
	}
	return nil
}

// PublishBatch publishes multiple messages in one pipeline
func (q *RedisQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	pipe := q.client.Pipeline()
	for _, msg := range messages {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: q.streamName(msg.Subject),
			ID:     "*",
			Values: map[string]interface{}{"data": msg.Data},
		})
	}

	cmds, err := pipe.Exec(ctx)
	successCount := 0
	for _, cmd := range cmds {
		if cmd.Err() == nil {
			successCount++
		}
	}
	if err != nil && successCount == 0 {
		return 0, fmt.Errorf("failed to execute batch publish: %w", err)
	}
	return successCount, nil
}

// Subscribe reads the stream of subject through the consumer group
func (q *RedisQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	stream := q.streamName(subject)
	ctx, cancel := context.WithCancel(context.Background())

	err := q.client.XGroupCreateMkStream(ctx, stream, q.config.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		cancel()
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.readStream(ctx, stream, handler)
	}()

	q.subscriptions[subject] = cancel
	return nil
}

// readStream reads new messages until ctx is cancelled. Messages whose
// handler fails stay pending in the group and are not acknowledged.
func (q *RedisQueue) readStream(ctx context.Context, stream string, handler MessageHandler) {
	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.config.Group,
			Consumer: q.config.Consumer,
			Streams:  []string{stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			q.logger.Warn("Redis stream read failed", "stream", stream, "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				data, ok := msg.Values["data"].(string)
				if !ok {
					q.client.XAck(ctx, stream, q.config.Group, msg.ID)
					continue
				}

				if err := handler([]byte(data)); err != nil {
					q.logger.Warn("Redis handler failed, message left pending", "stream", stream, "id", msg.ID, "error", err)
					continue
				}

				q.client.XAck(ctx, stream, q.config.Group, msg.ID)
			}
		}
	}
}

// Unsubscribe stops reading subject
func (q *RedisQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancel, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	cancel()
	delete(q.subscriptions, subject)
	return nil
}

// Close stops all readers and closes the Redis connection
func (q *RedisQueue) Close() error {
	q.mu.Lock()
	for subject, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, subject)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return q.client.Close()
}

// Backend identifies the transport
func (q *RedisQueue) Backend() utils.QueueType {
	return utils.QueueTypeRedis
}

package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/utils"
)

// KafkaConfig represents Apache Kafka configuration
type KafkaConfig struct {
	Brokers       []string      // Kafka broker addresses
	GroupID       string        // Consumer group ID (default: "fuelcast-group")
	MaxRetries    int           // Producer write attempts (default: 3)
	RetryBackoff  time.Duration // Backoff between commit retries (default: 100ms)
	CommitRetries int           // Consumer commit retries (default: 3)
}

// KafkaQueue implements Queue interface using Apache Kafka
type KafkaQueue struct {
	logger        *logging.Logger
	config        KafkaConfig
	writers       map[string]*kafka.Writer
	readers       map[string]*kafka.Reader
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.RWMutex
}

// newKafkaQueue creates a Kafka queue. Connections are opened on first use.
func newKafkaQueue(cfg KafkaConfig, logger *logging.Logger) (*KafkaQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}

	if cfg.GroupID == "" {
		cfg.GroupID = "fuelcast-group"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.CommitRetries == 0 {
		cfg.CommitRetries = 3
	}
	if logger == nil {
		logger = logging.Global()
	}

	return &KafkaQueue{
		logger:        logger,
		config:        cfg,
		writers:       make(map[string]*kafka.Writer),
		readers:       make(map[string]*kafka.Reader),
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

// writer returns the writer of topic, creating it on first use
func (q *KafkaQueue) writer(topic string) *kafka.Writer {
	q.mu.Lock()
	defer q.mu.Unlock()

	if w, exists := q.writers[topic]; exists {
		return w
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(q.config.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            q.config.MaxRetries,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	q.writers[topic] = w
	return w
}

// Publish writes a message to topic subject
func (q *KafkaQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := q.writer(subject).WriteMessages(ctx, kafka.Message{Value: data, Time: time.Now()}); err != nil {
		return fmt.Errorf("failed to publish to kafka topic %s: %w", subject, err)
	}
	return nil
}

// PublishBatch writes messages grouped by topic
func (q *KafkaQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	byTopic := make(map[string][]kafka.Message)
	for _, msg := range messages {
		byTopic[msg.Subject] = append(byTopic[msg.Subject], kafka.Message{Value: msg.Data, Time: time.Now()})
	}

	successCount := 0
	var lastErr error
	for topic, msgs := range byTopic {
		if err := q.writer(topic).WriteMessages(ctx, msgs...); err != nil {
			lastErr = err
			continue
		}
		successCount += len(msgs)
	}

	if lastErr != nil && successCount == 0 {
		return 0, fmt.Errorf("failed to publish batch: %w", lastErr)
	}
	return successCount, nil
}

// Subscribe consumes topic subject in the consumer group
func (q *KafkaQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to topic: %s", subject)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  q.config.Brokers,
		GroupID:  q.config.GroupID,
		Topic:    subject,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	q.readers[subject] = reader
	q.subscriptions[subject] = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.consume(ctx, reader, handler)
	}()

	return nil
}

// consume fetches messages until ctx is cancelled. Offsets are committed only
// after the handler succeeds.
func (q *KafkaQueue) consume(ctx context.Context, reader *kafka.Reader, handler MessageHandler) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.logger.Warn("Kafka fetch failed", "topic", reader.Config().Topic, "error", err)
			continue
		}

		if err := handler(msg.Value); err != nil {
			q.logger.Warn("Kafka handler failed, offset not committed", "topic", msg.Topic, "offset", msg.Offset, "error", err)
			continue
		}

		for i := 0; i < q.config.CommitRetries; i++ {
			if err := reader.CommitMessages(ctx, msg); err == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			time.Sleep(q.config.RetryBackoff)
		}
	}
}

// Unsubscribe stops consuming topic subject
func (q *KafkaQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancel, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to topic: %s", subject)
	}

	cancel()
	if reader, ok := q.readers[subject]; ok {
		_ = reader.Close()
		delete(q.readers, subject)
	}
	delete(q.subscriptions, subject)
	return nil
}

// Close closes all readers and writers
func (q *KafkaQueue) Close() error {
	q.mu.Lock()
	var lastErr error
	for subject, cancel := range q.subscriptions {
		cancel()
		if reader, ok := q.readers[subject]; ok {
			if err := reader.Close(); err != nil {
				lastErr = err
			}
		}
		delete(q.subscriptions, subject)
		delete(q.readers, subject)
	}
	for topic, w := range q.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
		delete(q.writers, topic)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return lastErr
}

// Backend identifies the transport
func (q *KafkaQueue) Backend() utils.QueueType {
	return utils.QueueTypeKafka
}

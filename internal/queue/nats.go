package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/utils"
)

// NATSConfig represents NATS JetStream configuration
type NATSConfig struct {
	URL      string
	Username string
	Password string
	AckWait  time.Duration // Redelivery delay for unacknowledged jobs (default: 10m)
}

// NATSQueue implements Queue interface using NATS JetStream
type NATSQueue struct {
	logger        *logging.Logger
	conn          *nats.Conn
	js            nats.JetStreamContext
	ackWait       time.Duration
	subscriptions map[string]*nats.Subscription
	mu            sync.RWMutex
}

// newNATSQueue connects to NATS and enables JetStream
func newNATSQueue(cfg NATSConfig, logger *logging.Logger) (*NATSQueue, error) {
	opts := []nats.Option{
		nats.Name("fuelcast"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	q, err := newNATSQueueWithConn(conn, cfg.AckWait, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

// newNATSQueueWithConn wraps an existing connection
func newNATSQueueWithConn(conn *nats.Conn, ackWait time.Duration, logger *logging.Logger) (*NATSQueue, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	if ackWait <= 0 {
		ackWait = 10 * time.Minute
	}
	if logger == nil {
		logger = logging.Global()
	}

	return &NATSQueue{
		logger:        logger,
		conn:          conn,
		js:            js,
		ackWait:       ackWait,
		subscriptions: make(map[string]*nats.Subscription),
	}, nil
}

// ensureStream creates the stream holding subject if it does not exist
func (q *NATSQueue) ensureStream(subject string) error {
	name := streamName(subject)
	if _, err := q.js.StreamInfo(name); err == nil {
		return nil
	}

	_, err := q.js.AddStream(&nats.StreamConfig{
		Name:      name,
		Subjects:  []string{subject},
		Storage:   nats.FileStorage,
		Retention: nats.WorkQueuePolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream for subject %s: %w", subject, err)
	}
	return nil
}

// Publish publishes a message and waits for the JetStream acknowledgement
func (q *NATSQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := q.ensureStream(subject); err != nil {
		return err
	}
	if _, err := q.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// PublishBatch publishes all messages asynchronously and waits for the acknowledgements
func (q *NATSQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	futures := make([]nats.PubAckFuture, 0, len(messages))
	for _, msg := range messages {
		if err := q.ensureStream(msg.Subject); err != nil {
			continue
		}
		future, err := q.js.PublishAsync(msg.Subject, msg.Data)
		if err != nil {
			continue
		}
		futures = append(futures, future)
	}

	select {
	case <-q.js.PublishAsyncComplete():
	case <-ctx.Done():
		return 0, fmt.Errorf("timeout waiting for batch publish: %w", ctx.Err())
	}

	successCount := 0
	for _, future := range futures {
		select {
		case <-future.Ok():
			successCount++
		case err := <-future.Err():
			q.logger.Warn("NATS publish not acknowledged", "subject", future.Msg().Subject, "error", err)
		}
	}

	if successCount == 0 {
		return 0, fmt.Errorf("failed to publish batch of %d messages", len(messages))
	}
	return successCount, nil
}

// Subscribe consumes subject through a durable JetStream consumer with manual
// acknowledgement. A failed handler NAKs the message for redelivery, up to 3 deliveries.
func (q *NATSQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	if err := q.ensureStream(subject); err != nil {
		return err
	}

	sub, err := q.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			q.logger.Warn("NATS handler failed, message will be redelivered", "subject", subject, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("consumer-"+sanitizeName(subject)),
		nats.ManualAck(),
		nats.MaxAckPending(1),
		nats.AckWait(q.ackWait),
		nats.MaxDeliver(3),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	q.subscriptions[subject] = sub
	return nil
}

// Unsubscribe drains in-flight messages and stops consuming subject
func (q *NATSQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	if err := sub.Drain(); err != nil {
		return fmt.Errorf("failed to unsubscribe from subject %s: %w", subject, err)
	}

	delete(q.subscriptions, subject)
	return nil
}

// Close drains subscriptions and closes the connection
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for subject, sub := range q.subscriptions {
		_ = sub.Drain()
		delete(q.subscriptions, subject)
	}

	q.conn.Close()
	return nil
}

// streamName returns the JetStream stream holding subject
func streamName(subject string) string {
	return "fuelcast-" + sanitizeName(subject)
}

// sanitizeName replaces characters not allowed in stream and consumer names.
// Names can only contain: A-Z, a-z, 0-9, dash (-) and underscore (_)
func sanitizeName(subject string) string {
	result := make([]byte, 0, len(subject))
	for i := 0; i < len(subject); i++ {
		c := subject[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}

// Backend identifies the transport
func (q *NATSQueue) Backend() utils.QueueType {
	return utils.QueueTypeNATS
}

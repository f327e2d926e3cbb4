package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/utils"
)

// memoryBufferSize is the capacity of each in-process subject
const memoryBufferSize = 1024

// MemoryQueue implements Queue with buffered channels inside the process.
// Messages are lost on restart and a failed handler is not retried.
type MemoryQueue struct {
	logger        *logging.Logger
	channels      map[string]chan []byte
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	closed        bool
	mu            sync.RWMutex
}

// newMemoryQueue creates a new in-memory queue instance
func newMemoryQueue(logger *logging.Logger) *MemoryQueue {
	if logger == nil {
		logger = logging.Global()
	}
	return &MemoryQueue{
		logger:        logger,
		channels:      make(map[string]chan []byte),
		subscriptions: make(map[string]context.CancelFunc),
	}
}

// channel returns the channel of subject, creating it on first use. Callers hold mu.
func (q *MemoryQueue) channel(subject string) chan []byte {
	if ch, exists := q.channels[subject]; exists {
		return ch
	}
	ch := make(chan []byte, memoryBufferSize)
	q.channels[subject] = ch
	return ch
}

// Publish enqueues a copy of data. It fails when the subject buffer is full.
func (q *MemoryQueue) Publish(ctx context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	select {
	case q.channel(subject) <- dataCopy:
		return nil
	default:
		return fmt.Errorf("channel full for subject: %s", subject)
	}
}

// PublishBatch publishes messages one by one and counts the successes
func (q *MemoryQueue) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	successCount := 0
	var lastErr error

	for _, msg := range messages {
		if err := q.Publish(ctx, msg.Subject, msg.Data); err != nil {
			lastErr = err
			continue
		}
		successCount++
	}

	if lastErr != nil && successCount == 0 {
		return 0, fmt.Errorf("failed to publish batch: %w", lastErr)
	}
	return successCount, nil
}

// Subscribe consumes subject on a background goroutine
func (q *MemoryQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}
	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	ch := q.channel(subject)
	ctx, cancel := context.WithCancel(context.Background())
	q.subscriptions[subject] = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case data, ok := <-ch:
				if !ok {
					return
				}
				if err := handler(data); err != nil {
					q.logger.Warn("Memory queue handler failed", "subject", subject, "error", err)
				}
			}
		}
	}()

	return nil
}

// Unsubscribe stops consuming subject. Pending messages stay buffered.
func (q *MemoryQueue) Unsubscribe(subject string) error {
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

// Close stops all consumers and waits for in-flight handlers to return
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	for subject, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, subject)
	}
	for subject, ch := range q.channels {
		close(ch)
		delete(q.channels, subject)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// PendingCount returns the number of buffered messages for a subject
func (q *MemoryQueue) PendingCount(subject string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if ch, exists := q.channels[subject]; exists {
		return len(ch)
	}
	return 0
}

// Backend identifies the transport
func (q *MemoryQueue) Backend() utils.QueueType {
	return utils.QueueTypeMemory
}

// Package queue carries training jobs between the API and the training worker
// over an in-process channel, NATS JetStream, Redis Streams or Kafka.
package queue

import (
	"context"

	"github.com/fuelcast/fuelcast/internal/utils"
)

// Publisher sends raw job payloads to a subject
type Publisher interface {
	// Publish returns once the backend has accepted data
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishBatch sends every message and reports how many were accepted.
	// A partial batch returns the accepted count with a nil error; only a
	// batch with no accepted message fails.
	PublishBatch(ctx context.Context, messages []BatchMessage) (int, error)

	Close() error
}

// BatchMessage is one entry of PublishBatch
type BatchMessage struct {
	Subject string
	Data    []byte
}

// Subscriber delivers payloads of a subject to a handler, one at a time per subject
type Subscriber interface {
	// Subscribe starts delivery. A handler error asks the backend to deliver
	// the message again; the memory backend only logs it.
	Subscribe(subject string, handler MessageHandler) error

	// Unsubscribe stops delivery for subject
	Unsubscribe(subject string) error

	Close() error
}

// MessageHandler processes one payload
type MessageHandler func(data []byte) error

// Queue is a job transport backend
type Queue interface {
	Publisher
	Subscriber

	// Backend names the transport
	Backend() utils.QueueType
}

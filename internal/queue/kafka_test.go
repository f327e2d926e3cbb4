package queue

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fuelcast/fuelcast/internal/logging"
)

func TestNewKafkaQueue_Defaults(t *testing.T) {
	q, err := newKafkaQueue(KafkaConfig{Brokers: []string{"localhost:9092"}}, logging.NewNop())
	if err != nil {
		t.Fatalf("newKafkaQueue failed: %v", err)
	}
	defer func() { _ = q.Close() }()

	if q.config.GroupID != "fuelcast-group" {
		t.Errorf("Expected default group, got %s", q.config.GroupID)
	}
	if q.config.MaxRetries != 3 || q.config.CommitRetries != 3 {
		t.Errorf("Unexpected retry defaults: %+v", q.config)
	}

	w1 := q.writer("fuelcast.train")
	w2 := q.writer("fuelcast.train")
	if w1 != w2 {
		t.Error("Expected the writer of a topic to be reused")
	}
	if w1.Topic != "fuelcast.train" {
		t.Errorf("Unexpected writer topic %s", w1.Topic)
	}
}

func TestNewKafkaQueue_NoBrokers(t *testing.T) {
	if _, err := newKafkaQueue(KafkaConfig{}, logging.NewNop()); err == nil {
		t.Fatal("Expected error without brokers")
	}
}

func TestKafkaQueue_PublishBatch_Empty(t *testing.T) {
	q, err := newKafkaQueue(KafkaConfig{Brokers: []string{"localhost:9092"}}, logging.NewNop())
	if err != nil {
		t.Fatalf("newKafkaQueue failed: %v", err)
	}
	defer func() { _ = q.Close() }()

	n, err := q.PublishBatch(context.Background(), nil)
	if err != nil || n != 0 {
		t.Errorf("Expected (0, nil), got (%d, %v)", n, err)
	}
}

func TestKafkaQueue_PublishSubscribe(t *testing.T) {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("KAFKA_BROKERS not set, skipping test")
	}

	q, err := newKafkaQueue(KafkaConfig{Brokers: strings.Split(brokers, ","), GroupID: "fuelcast-test"}, logging.NewNop())
	if err != nil {
		t.Fatalf("newKafkaQueue failed: %v", err)
	}
	defer func() { _ = q.Close() }()

	topic := "fuelcast-test-" + time.Now().Format("150405")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := q.Publish(ctx, topic, []byte("job")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	received := make(chan []byte, 1)
	if err := q.Subscribe(topic, func(data []byte) error {
		received <- data
		return nil
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	select {
	case got := <-received:
		if string(got) != "job" {
			t.Errorf("Expected job, got %s", got)
		}
	case <-ctx.Done():
		t.Fatal("Timed out waiting for message")
	}
}

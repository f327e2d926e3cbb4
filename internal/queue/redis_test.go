package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fuelcast/fuelcast/internal/logging"
)

// redisURL returns the test server from REDIS_URL or skips the test
func redisURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping test")
	}
	return url
}

func TestRedisConfig_Defaults(t *testing.T) {
	cfg := RedisConfig{}.withDefaults()

	if cfg.Stream != "fuelcast" {
		t.Errorf("Expected default stream fuelcast, got %s", cfg.Stream)
	}
	if cfg.Group != "fuelcast-group" {
		t.Errorf("Expected default group fuelcast-group, got %s", cfg.Group)
	}
	if cfg.Consumer == "" {
		t.Error("Expected a consumer name")
	}

	custom := RedisConfig{Stream: "s", Group: "g", Consumer: "c"}.withDefaults()
	if custom.Stream != "s" || custom.Group != "g" || custom.Consumer != "c" {
		t.Errorf("Explicit values must be kept: %+v", custom)
	}
}

func TestNewRedisQueue_Unreachable(t *testing.T) {
	if _, err := newRedisQueue(RedisConfig{URL: "redis://127.0.0.1:1"}, logging.NewNop()); err == nil {
		t.Fatal("Expected error for unreachable Redis")
	}
}

func TestRedisQueue_PublishSubscribe(t *testing.T) {
	q, err := newRedisQueue(RedisConfig{URL: redisURL(t), Stream: "fuelcast-test-" + time.Now().Format("150405.000")}, logging.NewNop())
	if err != nil {
		t.Fatalf("Failed to create Redis queue: %v", err)
	}
	defer func() { _ = q.Close() }()

	if got := q.streamName("fuelcast.train"); got != q.config.Stream+":fuelcast.train" {
		t.Errorf("Unexpected stream name %s", got)
	}

	received := make(chan []byte, 1)
	if err := q.Subscribe("fuelcast.train", func(data []byte) error {
		received <- data
		return nil
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := q.Publish(context.Background(), "fuelcast.train", []byte("job")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-received:
		if string(got) != "job" {
			t.Errorf("Expected job, got %s", got)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for message")
	}
}

package feed

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	p.Publish([]byte("ignored"))
	if err := p.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	// run is never started, so nothing drains the queue.
	p := newRedisPublisher(rdb, "canvas:test", 2, newTestLogger())
	defer p.Close()

	for i := 0; i < 5; i++ {
		p.Publish([]byte("msg"))
	}

	if got := len(p.queue); got != 2 {
		t.Errorf("queued = %d, want 2", got)
	}
	if got := p.Dropped(); got != 3 {
		t.Errorf("dropped = %d, want 3", got)
	}
}

func TestPublishAfterCloseIsIgnored(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	p := newRedisPublisher(rdb, "canvas:test", 2, newTestLogger())
	p.Close()
	p.Close()

	p.Publish([]byte("late"))
	if len(p.queue) != 0 || p.Dropped() != 0 {
		t.Error("publish after close should be ignored")
	}
}

func TestNewRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := NewRedis(ctx, Options{Address: "127.0.0.1:1", Channel: "canvas:test"}, newTestLogger()); err == nil {
		t.Fatal("expected an error connecting to an unreachable redis")
	}
}

// TestRedisRoundTrip needs a live server: CANVAS_TEST_REDIS=localhost:6379.
func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("CANVAS_TEST_REDIS")
	if addr == "" {
		t.Skip("CANVAS_TEST_REDIS not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := redis.NewClient(&redis.Options{Addr: addr})
	defer sub.Close()
	ps := sub.Subscribe(ctx, "canvas:roundtrip")
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	p, err := NewRedis(ctx, Options{Address: addr, Channel: "canvas:roundtrip"}, newTestLogger())
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer p.Close()

	p.Publish([]byte(`{"type":"clearCanvas"}`))

	msg, err := ps.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	if msg.Payload != `{"type":"clearCanvas"}` {
		t.Errorf("payload = %q", msg.Payload)
	}
}

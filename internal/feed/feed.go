// Package feed mirrors canvas broadcasts onto an external channel so other
// processes can follow the board without holding a websocket.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

// Publisher receives every encoded broadcast. Publish must not block.
type Publisher interface {
	Publish(msg []byte)
	Close() error
}

// Nop discards everything. It is used when no feed is configured.
type Nop struct{}

func (Nop) Publish([]byte) {}
func (Nop) Close() error   { return nil }

type Options struct {
	Address  string
	Password string
	DB       int
	Channel  string
	// QueueSize bounds how many messages may wait for Redis. Further
	// messages are dropped.
	QueueSize int
}

// RedisPublisher forwards messages to a Redis pub/sub channel from its own
// goroutine.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	queue   chan []byte
	logger  *slog.Logger

	dropped   atomic.Uint64
	closeOnce sync.Once
	done      chan struct{}
}

// NewRedis connects to Redis and starts forwarding. The connection is checked
// with a PING so a bad address fails at startup rather than silently.
func NewRedis(ctx context.Context, opts Options, logger *slog.Logger) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Address, err)
	}

	p := newRedisPublisher(rdb, opts.Channel, opts.QueueSize, logger)
	go p.run()
	return p, nil
}

func newRedisPublisher(rdb *redis.Client, channel string, size int, logger *slog.Logger) *RedisPublisher {
	if size <= 0 {
		size = 1024
	}
	return &RedisPublisher{
		rdb:     rdb,
		channel: channel,
		queue:   make(chan []byte, size),
		logger:  logger.With(slog.String("component", "redis_feed"), slog.String("channel", channel)),
		done:    make(chan struct{}),
	}
}

func (p *RedisPublisher) Publish(msg []byte) {
	select {
	case <-p.done:
		return
	default:
	}

	select {
	case p.queue <- msg:
	default:
		if n := p.dropped.Add(1); n == 1 || n%1000 == 0 {
			p.logger.Warn("Feed queue full, dropping messages", slog.Uint64("dropped", n))
		}
	}
}

// Dropped reports how many messages were discarded because the queue was
// full.
func (p *RedisPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

func (p *RedisPublisher) run() {
	for {
		select {
		case <-p.done:
			return
		case msg := <-p.queue:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err := p.rdb.Publish(ctx, p.channel, msg).Err()
			cancel()
			if err != nil {
				p.logger.Error("error publishing to Redis", slog.Any("error", err))
			}
		}
	}
}

// Close stops forwarding and releases the Redis connection. Queued messages
// that have not been sent yet are discarded.
func (p *RedisPublisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.rdb.Close()
	})
	return err
}

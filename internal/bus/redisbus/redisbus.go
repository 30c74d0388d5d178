// Package redisbus is the production bus.Bus implementation, backed by
// Redis pub/sub. Grounded on the teacher's internal/cache.CacheService
// connection construction and graceful-degradation health tracking,
// repurposed from a cache client into a pub/sub transport.
package redisbus

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kosheduteam/signalengine/config"
	"github.com/kosheduteam/signalengine/internal/bus"
	"github.com/kosheduteam/signalengine/internal/logging"
)

// defaultBufferSize bounds a subscriber's adapted delivery channel when no
// explicit capacity is configured.
const defaultBufferSize = 256

// Bus is a Redis-backed bus.Bus. Connects lazily to tolerate Redis being
// briefly unavailable at process start; Publish/Subscribe surface the
// connection error to the caller rather than panicking.
type Bus struct {
	client     *redis.Client
	bufferSize int

	mu      sync.RWMutex
	healthy bool
}

// New creates a Bus against the configured Redis instance and verifies
// connectivity once (non-fatal: a failed ping leaves the Bus in a degraded
// state rather than returning an error, matching the teacher's
// graceful-degradation posture for the cache client). Each subscriber's
// adapted delivery channel is sized by bufferSize (config.QueuesConfig's
// bus_buffer_capacity); 0 falls back to defaultBufferSize.
func New(cfg config.RedisConfig, bufferSize int) *Bus {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	b := &Bus{client: client, bufferSize: bufferSize}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logging.WithComponent("bus").Warn("initial redis connection failed, starting degraded", "error", err.Error())
		b.healthy = false
		return b
	}
	b.healthy = true
	return b
}

// Healthy reports the bus's last-observed connectivity state.
func (b *Bus) Healthy() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.healthy
}

// Publish publishes payload to channel via Redis PUBLISH.
func (b *Bus) Publish(ctx context.Context, channel bus.Channel, payload []byte) error {
	err := b.client.Publish(ctx, string(channel), payload).Err()
	b.mu.Lock()
	b.healthy = err == nil
	b.mu.Unlock()
	return err
}

// Subscribe opens a Redis subscription on channel and adapts its delivery
// into a bus.Message channel. The unsubscribe function closes the
// underlying Redis subscription.
func (b *Bus) Subscribe(ctx context.Context, ch bus.Channel) (<-chan bus.Message, func(), error) {
	sub := b.client.Subscribe(ctx, string(ch))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, err
	}

	out := make(chan bus.Message, b.bufferSize)
	redisCh := sub.Channel()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case msg, ok := <-redisCh:
				if !ok {
					close(out)
					return
				}
				select {
				case out <- bus.Message{Channel: ch, Payload: []byte(msg.Payload), Timestamp: time.Now()}:
				default:
				}
			case <-done:
				return
			}
		}
	}()

	unsubscribe := func() {
		close(done)
		sub.Close()
	}

	return out, unsubscribe, nil
}

// Close releases the underlying Redis client.
func (b *Bus) Close() error {
	return b.client.Close()
}

// Package memorybus is an in-process, channel-based implementation of
// bus.Bus used by tests and the backtester (§4.I requires the backtester
// never touch live I/O). Grounded on the teacher's internal/events.EventBus
// mutex-guarded subscriber-list pattern, generalized from a typed-event
// fan-out to the abstract bus.Channel/bus.Message shape.
package memorybus

import (
	"context"
	"sync"
	"time"

	"github.com/kosheduteam/signalengine/internal/bus"
)

// defaultSubscriberBufferSize bounds each subscriber's delivery channel when
// no explicit capacity is configured; a slow subscriber drops messages
// rather than blocking the publisher (§5: best-effort fan-out, never block
// the hot path).
const defaultSubscriberBufferSize = 256

type subscriber struct {
	id int
	ch chan bus.Message
}

// Bus is an in-process pub/sub implementation of bus.Bus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[bus.Channel][]*subscriber
	nextID      int
	bufferSize  int
}

// New creates an empty in-process Bus whose subscriber channels use
// defaultSubscriberBufferSize.
func New() *Bus {
	return NewWithBufferSize(defaultSubscriberBufferSize)
}

// NewWithBufferSize creates an empty in-process Bus sized by
// bus_buffer_capacity (config.QueuesConfig.BusBufferCapacity), letting an
// operator trade delivery latitude for memory per deployment.
func NewWithBufferSize(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultSubscriberBufferSize
	}
	return &Bus{subscribers: make(map[bus.Channel][]*subscriber), bufferSize: bufferSize}
}

// Publish fans payload out to every current subscriber of channel
// (best-effort: a full subscriber buffer silently drops the message).
func (b *Bus) Publish(ctx context.Context, channel bus.Channel, payload []byte) error {
	msg := bus.Message{Channel: channel, Payload: payload, Timestamp: time.Now()}

	b.mu.RLock()
	subs := append([]*subscriber(nil), b.subscribers[channel]...)
	b.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe registers a new subscriber on channel and returns its delivery
// channel plus an unsubscribe function.
func (b *Bus) Subscribe(ctx context.Context, channel bus.Channel) (<-chan bus.Message, func(), error) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	s := &subscriber{id: id, ch: make(chan bus.Message, b.bufferSize)}
	b.subscribers[channel] = append(b.subscribers[channel], s)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		remaining := b.subscribers[channel][:0]
		for _, existing := range b.subscribers[channel] {
			if existing.id != id {
				remaining = append(remaining, existing)
			}
		}
		b.subscribers[channel] = remaining
		close(s.ch)
	}

	return s.ch, unsubscribe, nil
}

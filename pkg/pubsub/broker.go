package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultBufferSize = 64

// Message wraps a published payload with its topic and publish time.
type Message[T any] struct {
	Topic       string
	Payload     T
	PublishedAt time.Time
}

// Broker is a generic non-blocking publish/subscribe broker.
type Broker[T any] struct {
	mutex       sync.RWMutex
	subscribers map[chan Message[T]]struct{}
	closed      chan struct{}
	bufferSize  int
	dropped     atomic.Uint64
}

// NewBroker creates a broker whose subscriber channels hold bufferSize
// messages. Non-positive sizes fall back to DefaultBufferSize.
func NewBroker[T any](bufferSize int) *Broker[T] {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Broker[T]{
		subscribers: make(map[chan Message[T]]struct{}),
		closed:      make(chan struct{}),
		bufferSize:  bufferSize,
	}
}

// Subscribe returns a channel that receives every message published after
// the call. The channel is closed when ctx is cancelled or the broker closes.
func (broker *Broker[T]) Subscribe(ctx context.Context) <-chan Message[T] {
	broker.mutex.Lock()
	defer broker.mutex.Unlock()

	subscription := make(chan Message[T], broker.bufferSize)
	if broker.isClosedLocked() {
		close(subscription)
		return subscription
	}
	broker.subscribers[subscription] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-broker.closed:
			return
		}

		broker.mutex.Lock()
		defer broker.mutex.Unlock()
		if _, exists := broker.subscribers[subscription]; exists {
			delete(broker.subscribers, subscription)
			close(subscription)
		}
	}()

	return subscription
}

// Publish delivers payloads, in order, to every subscriber with room.
func (broker *Broker[T]) Publish(topic string, payloads ...T) {
	broker.mutex.RLock()
	defer broker.mutex.RUnlock()

	if broker.isClosedLocked() {
		return
	}

	publishedAt := time.Now().UTC()
	for _, payload := range payloads {
		message := Message[T]{Topic: topic, Payload: payload, PublishedAt: publishedAt}
		for subscription := range broker.subscribers {
			select {
			case subscription <- message:
			default:
				broker.dropped.Add(1)
			}
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (broker *Broker[T]) Dropped() uint64 {
	return broker.dropped.Load()
}

// SubscriberCount returns the number of live subscriptions.
func (broker *Broker[T]) SubscriberCount() int {
	broker.mutex.RLock()
	defer broker.mutex.RUnlock()
	return len(broker.subscribers)
}

// Close closes every subscription. Further publishes are ignored.
func (broker *Broker[T]) Close() {
	broker.mutex.Lock()
	defer broker.mutex.Unlock()

	if broker.isClosedLocked() {
		return
	}
	close(broker.closed)
	for subscription := range broker.subscribers {
		close(subscription)
	}
	broker.subscribers = map[chan Message[T]]struct{}{}
}

func (broker *Broker[T]) isClosedLocked() bool {
	select {
	case <-broker.closed:
		return true
	default:
		return false
	}
}

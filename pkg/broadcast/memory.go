package broadcast

import (
	"context"
	"sync"
	"time"
)

// MemoryOption configures a MemoryBroadcaster.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	deliveryTimeout time.Duration
}

// WithDeliveryTimeout makes Broadcast wait up to d for a full subscriber
// buffer to drain before the subscriber is dropped. Zero keeps the default
// drop-immediately behaviour.
func WithDeliveryTimeout(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		if d > 0 {
			o.deliveryTimeout = d
		}
	}
}

// MemoryBroadcaster fans messages out to in-process subscribers.
// Slow consumers are dropped rather than blocking other subscribers forever.
// All methods are safe for concurrent use.
type MemoryBroadcaster[T any] struct {
	subscribers     map[*subscriber[T]]struct{}
	bufferSize      int
	deliveryTimeout time.Duration
	closed          bool
	mu              sync.RWMutex
	cleanupWg       sync.WaitGroup // tracks cleanup goroutines
	done            chan struct{}
}

// NewMemoryBroadcaster creates a new in-memory broadcaster.
// The bufferSize parameter determines the channel buffer size for each subscriber;
// a minimum of 1 is enforced.
func NewMemoryBroadcaster[T any](bufferSize int, opts ...MemoryOption) *MemoryBroadcaster[T] {
	o := &memoryOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return &MemoryBroadcaster[T]{
		subscribers:     make(map[*subscriber[T]]struct{}),
		bufferSize:      max(bufferSize, 1),
		deliveryTimeout: o.deliveryTimeout,
		done:            make(chan struct{}),
	}
}

// Subscribe creates a new subscriber that will receive all broadcast messages.
// The subscription is automatically cleaned up when the provided context is cancelled.
// If the broadcaster is already closed, returns a closed subscriber.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := newSubscriber[T](b.bufferSize)
	if b.closed {
		_ = sub.Close()
		return sub
	}

	b.subscribers[sub] = struct{}{}

	if ctx.Done() != nil {
		b.cleanupWg.Add(1)
		go func() {
			defer b.cleanupWg.Done()
			select {
			case <-ctx.Done():
				b.unsubscribe(sub)
			case <-b.done:
			}
		}()
	}

	return sub
}

// Broadcast sends a message to all active subscribers.
// A subscriber whose buffer stays full past the delivery timeout is removed.
// Returns nil even if some subscribers didn't receive the message.
func (b *MemoryBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}

	for sub := range b.subscribers {
		if !sub.send(ctx, msg, b.deliveryTimeout) {
			// Removal needs the write lock held by nobody else, so it runs
			// after this broadcast releases its read lock.
			go b.unsubscribe(sub)
		}
	}

	return nil
}

// SubscriberCount returns the number of active subscribers.
func (b *MemoryBroadcaster[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close shuts down the broadcaster and closes all subscribers.
// It is safe to call Close multiple times.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()
		return nil
	}

	b.closed = true
	for sub := range b.subscribers {
		_ = sub.Close()
	}
	clear(b.subscribers)
	close(b.done)
	b.mu.Unlock()

	b.cleanupWg.Wait()
	return nil
}

func (b *MemoryBroadcaster[T]) unsubscribe(sub *subscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	_ = sub.Close()
}

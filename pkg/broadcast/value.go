package broadcast

import (
	"context"
	"sync"
)

// ValueOption configures a Value.
type ValueOption[T any] func(*Value[T])

// WithEqual sets the comparison used to suppress duplicate stores.
// Without it every Store is delivered.
func WithEqual[T any](eq func(a, b T) bool) ValueOption[T] {
	return func(v *Value[T]) {
		v.equal = eq
	}
}

// Value holds the latest value of T and replays it to every new subscriber.
// Slow subscribers never block Store: an undelivered value is replaced by
// the newer one, so each subscriber always ends up seeing the latest state.
type Value[T any] struct {
	current     T
	equal       func(a, b T) bool
	subscribers map[*subscriber[T]]struct{}
	closed      bool
	mu          sync.RWMutex
	cleanupWg   sync.WaitGroup
	done        chan struct{}
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T, opts ...ValueOption[T]) *Value[T] {
	v := &Value[T]{
		current:     initial,
		subscribers: make(map[*subscriber[T]]struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Load returns the current value.
func (v *Value[T]) Load() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Store replaces the current value and notifies subscribers.
// It reports whether the value changed; with WithEqual an equal value is
// ignored.
func (v *Value[T]) Store(x T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return false
	}
	if v.equal != nil && v.equal(v.current, x) {
		return false
	}

	v.current = x
	for sub := range v.subscribers {
		sub.replace(Message[T]{Data: x})
	}
	return true
}

// Subscribe returns a subscriber whose channel first yields the current
// value, then every later change. The subscription ends when ctx is
// cancelled, the subscriber is closed, or the Value is closed.
func (v *Value[T]) Subscribe(ctx context.Context) Subscriber[T] {
	v.mu.Lock()
	defer v.mu.Unlock()

	sub := newSubscriber[T](1)
	if v.closed {
		_ = sub.Close()
		return sub
	}

	sub.replace(Message[T]{Data: v.current})
	v.subscribers[sub] = struct{}{}

	if ctx.Done() != nil {
		v.cleanupWg.Add(1)
		go func() {
			defer v.cleanupWg.Done()
			select {
			case <-ctx.Done():
				v.unsubscribe(sub)
			case <-v.done:
			}
		}()
	}

	return sub
}

// SubscriberCount returns the number of live subscribers.
func (v *Value[T]) SubscriberCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	n := 0
	for sub := range v.subscribers {
		if !sub.isClosed() {
			n++
		}
	}
	return n
}

// Close closes every subscriber. Later stores are ignored.
func (v *Value[T]) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	for sub := range v.subscribers {
		_ = sub.Close()
	}
	clear(v.subscribers)
	close(v.done)
	v.mu.Unlock()

	v.cleanupWg.Wait()
	return nil
}

func (v *Value[T]) unsubscribe(sub *subscriber[T]) {
	v.mu.Lock()
	defer v.mu.Unlock()

	delete(v.subscribers, sub)
	_ = sub.Close()
}

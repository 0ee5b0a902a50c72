package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveWithin[T any](t *testing.T, sub Subscriber[T], d time.Duration) (T, bool) {
	t.Helper()
	select {
	case msg, ok := <-sub.Receive(context.Background()):
		return msg.Data, ok
	case <-time.After(d):
		t.Fatalf("no message within %s", d)
	}
	var zero T
	return zero, false
}

func TestMemoryBroadcaster_Subscribe(t *testing.T) {
	t.Run("after close returns closed subscriber", func(t *testing.T) {
		b := NewMemoryBroadcaster[string](10)
		require.NoError(t, b.Close())

		sub := b.Subscribe(context.Background())
		_, ok := <-sub.Receive(context.Background())
		assert.False(t, ok)
	})

	t.Run("context cancellation unsubscribes", func(t *testing.T) {
		b := NewMemoryBroadcaster[string](10)
		defer b.Close()

		ctx, cancel := context.WithCancel(context.Background())
		sub := b.Subscribe(ctx)
		cancel()

		assert.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
		_, ok := receiveWithin(t, sub, time.Second)
		assert.False(t, ok)
	})

	t.Run("close does not wait for live contexts", func(t *testing.T) {
		b := NewMemoryBroadcaster[string](10)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		_ = b.Subscribe(ctx)

		done := make(chan struct{})
		go func() {
			_ = b.Close()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Close blocked on an uncancelled subscriber context")
		}
	})
}

func TestMemoryBroadcaster_Broadcast(t *testing.T) {
	t.Run("fan out to every subscriber", func(t *testing.T) {
		b := NewMemoryBroadcaster[int](10)
		defer b.Close()

		ctx := context.Background()
		subs := []Subscriber[int]{b.Subscribe(ctx), b.Subscribe(ctx), b.Subscribe(ctx)}

		require.NoError(t, b.Broadcast(ctx, Message[int]{Data: 42}))

		for _, sub := range subs {
			got, ok := receiveWithin(t, sub, time.Second)
			require.True(t, ok)
			assert.Equal(t, 42, got)
		}
	})

	t.Run("after close is a no-op", func(t *testing.T) {
		b := NewMemoryBroadcaster[string](10)
		require.NoError(t, b.Close())
		assert.NoError(t, b.Broadcast(context.Background(), Message[string]{Data: "x"}))
	})

	t.Run("slow subscriber is dropped", func(t *testing.T) {
		b := NewMemoryBroadcaster[int](1)
		defer b.Close()

		ctx := context.Background()
		sub := b.Subscribe(ctx)

		for i := range 5 {
			require.NoError(t, b.Broadcast(ctx, Message[int]{Data: i}))
		}

		assert.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)

		first, ok := receiveWithin(t, sub, time.Second)
		require.True(t, ok)
		assert.Equal(t, 0, first)
		_, ok = receiveWithin(t, sub, time.Second)
		assert.False(t, ok)
	})

	t.Run("delivery timeout waits for a slow reader", func(t *testing.T) {
		b := NewMemoryBroadcaster[int](1, WithDeliveryTimeout(time.Second))
		defer b.Close()

		ctx := context.Background()
		sub := b.Subscribe(ctx)

		var (
			got []int
			wg  sync.WaitGroup
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 3 {
				time.Sleep(20 * time.Millisecond)
				msg := <-sub.Receive(ctx)
				got = append(got, msg.Data)
			}
		}()

		for i := range 3 {
			require.NoError(t, b.Broadcast(ctx, Message[int]{Data: i}))
		}
		wg.Wait()

		assert.Equal(t, []int{0, 1, 2}, got)
		assert.Equal(t, 1, b.SubscriberCount())
	})
}

func TestMemoryBroadcaster_Close(t *testing.T) {
	b := NewMemoryBroadcaster[string](10)

	ctx := context.Background()
	subs := []Subscriber[string]{b.Subscribe(ctx), b.Subscribe(ctx)}

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	for _, sub := range subs {
		_, ok := <-sub.Receive(ctx)
		assert.False(t, ok)
	}
}

package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_ReplaysCurrent(t *testing.T) {
	v := NewValue("inactive")
	defer v.Close()

	v.Store("in_progress")

	sub := v.Subscribe(context.Background())
	got, ok := receiveWithin(t, sub, time.Second)
	require.True(t, ok)
	assert.Equal(t, "in_progress", got)
	assert.Equal(t, "in_progress", v.Load())
}

func TestValue_DeliversChanges(t *testing.T) {
	v := NewValue(0)
	defer v.Close()

	sub := v.Subscribe(context.Background())
	first, _ := receiveWithin(t, sub, time.Second)
	assert.Equal(t, 0, first)

	assert.True(t, v.Store(1))
	next, ok := receiveWithin(t, sub, time.Second)
	require.True(t, ok)
	assert.Equal(t, 1, next)
}

func TestValue_ConflatesForSlowReaders(t *testing.T) {
	v := NewValue(0)
	defer v.Close()

	sub := v.Subscribe(context.Background())
	for i := 1; i <= 100; i++ {
		v.Store(i)
	}

	got, ok := receiveWithin(t, sub, time.Second)
	require.True(t, ok)
	assert.Equal(t, 100, got)
}

func TestValue_WithEqualSuppressesDuplicates(t *testing.T) {
	v := NewValue("active", WithEqual(func(a, b string) bool { return a == b }))
	defer v.Close()

	sub := v.Subscribe(context.Background())
	_, _ = receiveWithin(t, sub, time.Second)

	assert.False(t, v.Store("active"))

	select {
	case msg := <-sub.Receive(context.Background()):
		t.Fatalf("unexpected message %q", msg.Data)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestValue_Close(t *testing.T) {
	v := NewValue(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := v.Subscribe(ctx)
	_, _ = receiveWithin(t, sub, time.Second)

	require.NoError(t, v.Close())
	require.NoError(t, v.Close())

	_, ok := <-sub.Receive(ctx)
	assert.False(t, ok)
	assert.False(t, v.Store(2))
	assert.Equal(t, 1, v.Load())

	late := v.Subscribe(context.Background())
	_, ok = <-late.Receive(context.Background())
	assert.False(t, ok)
}

func TestValue_ContextCancelUnsubscribes(t *testing.T) {
	v := NewValue(1)
	defer v.Close()

	ctx, cancel := context.WithCancel(context.Background())
	_ = v.Subscribe(ctx)
	assert.Equal(t, 1, v.SubscriberCount())

	cancel()
	assert.Eventually(t, func() bool { return v.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestValue_ConcurrentStores(t *testing.T) {
	v := NewValue(0)
	defer v.Close()

	sub := v.Subscribe(context.Background())

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			v.Store(n)
		}(i)
	}
	wg.Wait()
	v.Store(-1)

	assert.Eventually(t, func() bool {
		select {
		case msg := <-sub.Receive(context.Background()):
			return msg.Data == -1
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

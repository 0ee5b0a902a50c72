package cache_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storekit/pkg/cache"
)

func TestLRUCache_Basic(t *testing.T) {
	c := cache.NewLRUCache[string, int](3)

	_, existed := c.Put("a", 1)
	assert.False(t, existed)

	old, existed := c.Put("a", 2)
	assert.True(t, existed)
	assert.Equal(t, 1, old)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.True(t, c.Contains("a"))
	assert.False(t, c.Contains("b"))
}

func TestLRUCache_Eviction(t *testing.T) {
	var evicted []string
	c := cache.NewLRUCache[string, int](2, cache.WithEvictCallback(func(k string, _ int) {
		evicted = append(evicted, k)
	}))

	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a") // b becomes least recently used
	c.Put("c", 3)

	assert.Equal(t, []string{"b"}, evicted)
	assert.True(t, c.Contains("a"))
	assert.True(t, c.Contains("c"))
	assert.Equal(t, 2, c.Len())
}

func TestLRUCache_TTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	c := cache.NewLRUCache[string, bool](10,
		cache.WithTTL[string, bool](time.Minute),
		cache.WithClock[string, bool](clock),
	)

	c.Put("token", true)
	assert.True(t, c.Contains("token"))

	now = now.Add(59 * time.Second)
	assert.True(t, c.Contains("token"))

	now = now.Add(time.Second)
	_, ok := c.Get("token")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	_, existed := c.Put("token", true)
	assert.False(t, existed, "expired entry must not be reported as previous value")
}

func TestLRUCache_RemoveAndClear(t *testing.T) {
	c := cache.NewLRUCache[string, int](5)
	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Remove("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = c.Remove("a")
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestLRUCache_InvalidCapacity(t *testing.T) {
	assert.Panics(t, func() { cache.NewLRUCache[string, int](0) })
}

func TestLRUCache_Concurrent(t *testing.T) {
	c := cache.NewLRUCache[string, int](50)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("%d-%d", g, j%20)
				c.Put(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}

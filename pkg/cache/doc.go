// Package cache provides a generic, thread-safe LRU cache with optional
// per-entry expiry.
//
//	confirmed := cache.NewLRUCache[string, time.Time](256,
//		cache.WithTTL[string, time.Time](time.Hour),
//	)
//	confirmed.Put(purchaseToken, time.Now())
//	if confirmed.Contains(purchaseToken) {
//		// already confirmed recently
//	}
//
// Expired entries are dropped lazily when they are looked up, or when they
// reach the back of the eviction list.
package cache

// Package ratelimiter implements a token bucket limiter and an HTTP
// middleware for it.
//
// A Bucket holds Capacity tokens per key and adds RefillRate tokens every
// RefillInterval. Each request takes one token; a request that drives the
// bucket negative is rejected with 429 and a Retry-After header.
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//
//	bucket, err := ratelimiter.NewBucket(store, cfg)
//	if err != nil {
//		return err
//	}
//	r.With(ratelimiter.Middleware(bucket, clientip.Key, log)).Post("/purchase", h)
//
// Bucket state lives in a Store. MemoryStore keeps it per process and drops
// buckets idle for an hour.
package ratelimiter

package ratelimiter

import (
	"fmt"
	"time"
)

// Config defines a token bucket. A zero Capacity disables limiting.
type Config struct {
	Capacity       int           `env:"STOREKIT_RATE_LIMIT_CAPACITY" envDefault:"10" yaml:"capacity"`
	RefillRate     int           `env:"STOREKIT_RATE_LIMIT_REFILL_RATE" envDefault:"1" yaml:"refill_rate"`
	RefillInterval time.Duration `env:"STOREKIT_RATE_LIMIT_REFILL_INTERVAL" envDefault:"6s" yaml:"refill_interval"`
}

// Enabled reports whether the config asks for limiting at all.
func (c Config) Enabled() bool {
	return c.Capacity > 0
}

func (c Config) validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// Result is the bucket state after a request.
type Result struct {
	Limit     int
	Remaining int // negative when the request was rejected
	ResetAt   time.Time
}

func (r Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter is zero for allowed requests.
func (r Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(time.Until(r.ResetAt), 0)
}

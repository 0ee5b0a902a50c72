package backend

import "time"

// Config holds the backend endpoints and transport settings.
type Config struct {
	AuthURL          string        `env:"STOREKIT_AUTH_URL" envDefault:"http://localhost:8081/api/auth" yaml:"auth_url"`
	SubscriptionsURL string        `env:"STOREKIT_SUBSCRIPTIONS_URL" envDefault:"http://localhost:8081/api" yaml:"subscriptions_url"`
	RequestTimeout   time.Duration `env:"STOREKIT_REQUEST_TIMEOUT" envDefault:"10s" yaml:"request_timeout"`
	UserAgent        string        `env:"STOREKIT_USER_AGENT" envDefault:"storekit/1.0" yaml:"user_agent"`

	// Circuit breaker; a zero threshold disables it.
	CircuitFailureThreshold int           `env:"STOREKIT_CIRCUIT_FAILURE_THRESHOLD" envDefault:"5" yaml:"circuit_failure_threshold"`
	CircuitRecoveryTimeout  time.Duration `env:"STOREKIT_CIRCUIT_RECOVERY_TIMEOUT" envDefault:"30s" yaml:"circuit_recovery_timeout"`
}

// Options turns the transport settings into client options.
// Both clients share one breaker since they usually sit behind one gateway.
func (c Config) Options() []Option {
	opts := []Option{WithTimeout(c.RequestTimeout)}
	if c.UserAgent != "" {
		opts = append(opts, WithUserAgent(c.UserAgent))
	}
	if c.CircuitFailureThreshold > 0 {
		opts = append(opts, WithCircuitBreaker(NewCircuitBreaker(c.CircuitFailureThreshold, 1, c.CircuitRecoveryTimeout)))
	}
	return opts
}

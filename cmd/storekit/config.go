package main

import (
	"github.com/dmitrymomot/storekit/pkg/authstore"
	"github.com/dmitrymomot/storekit/pkg/backend"
	"github.com/dmitrymomot/storekit/pkg/billing"
	"github.com/dmitrymomot/storekit/pkg/config"
	"github.com/dmitrymomot/storekit/pkg/httpserver"
	"github.com/dmitrymomot/storekit/pkg/ratelimiter"
	"github.com/dmitrymomot/storekit/svc/subscriptions"
)

const (
	storageMemory = "memory"
	storageSQL    = "sql"
	storageRedis  = "redis"
)

// appConfig is the whole storekit configuration. Values come from env tag
// defaults, then the YAML file, then the environment.
type appConfig struct {
	Env       string `env:"STOREKIT_ENV" envDefault:"development" yaml:"env"`
	LogLevel  string `env:"STOREKIT_LOG_LEVEL" yaml:"log_level"`
	LogFormat string `env:"STOREKIT_LOG_FORMAT" yaml:"log_format"`

	// Storage selects the auth repository backend: memory, sql or redis.
	Storage string                `env:"STOREKIT_STORAGE" envDefault:"sql" yaml:"storage"`
	SQL     authstore.SQLConfig   `yaml:"sql"`
	Redis   authstore.RedisConfig `yaml:"redis"`
	// StorageKey is a base64 32-byte key. When set, tokens and email are
	// encrypted before they reach sql or redis.
	StorageKey string `env:"STOREKIT_STORAGE_KEY" yaml:"storage_key"`

	Backend       backend.Config       `yaml:"backend"`
	Subscriptions subscriptions.Config `yaml:"subscriptions"`
	Paddle        billing.PaddleConfig `yaml:"paddle"`
	HTTP          httpserver.Config    `yaml:"http"`
	// RateLimit guards the API routes that call the backend, per client IP.
	RateLimit ratelimiter.Config `yaml:"rate_limit"`
}

func loadConfig(path string, envFiles ...string) (appConfig, error) {
	if len(envFiles) > 0 {
		if err := config.LoadEnv(envFiles...); err != nil {
			return appConfig{}, err
		}
	}
	var cfg appConfig
	if err := config.LoadFile(path, &cfg); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}

package authstore

import "time"

// SQLConfig configures SQLStorage.
type SQLConfig struct {
	Driver       string `env:"STOREKIT_DB_DRIVER" envDefault:"sqlite" yaml:"driver"` // "sqlite" or "postgres"
	DSN          string `env:"STOREKIT_DB_DSN" envDefault:"storekit.db" yaml:"dsn"`  // file path for sqlite, connection URL for postgres
	MaxOpenConns int32  `env:"STOREKIT_DB_MAX_OPEN_CONNS" envDefault:"4" yaml:"max_open_conns"`

	RetryAttempts int           `env:"STOREKIT_DB_RETRY_ATTEMPTS" envDefault:"3" yaml:"retry_attempts"`
	RetryInterval time.Duration `env:"STOREKIT_DB_RETRY_INTERVAL" envDefault:"2s" yaml:"retry_interval"`

	MigrationsTable string `env:"STOREKIT_DB_MIGRATIONS_TABLE" envDefault:"storekit_migrations" yaml:"migrations_table"`
}

// RedisConfig configures RedisStorage.
type RedisConfig struct {
	ConnectionURL  string        `env:"STOREKIT_REDIS_URL" envDefault:"redis://localhost:6379/0" yaml:"url"`
	KeyPrefix      string        `env:"STOREKIT_REDIS_PREFIX" envDefault:"storekit" yaml:"key_prefix"`
	RetryAttempts  int           `env:"STOREKIT_REDIS_RETRY_ATTEMPTS" envDefault:"3" yaml:"retry_attempts"`
	RetryInterval  time.Duration `env:"STOREKIT_REDIS_RETRY_INTERVAL" envDefault:"2s" yaml:"retry_interval"`
	ConnectTimeout time.Duration `env:"STOREKIT_REDIS_CONNECT_TIMEOUT" envDefault:"30s" yaml:"connect_timeout"`
}

// Package config loads typed configuration from environment variables and
// optional YAML files.
//
// Structs describe their settings with `env` tags understood by
// github.com/caarlos0/env/v11 and, when a file is used, `yaml` tags:
//
//	type Config struct {
//		BackendURL    string        `env:"STOREKIT_BACKEND_URL,required" yaml:"backend_url"`
//		CheckInterval time.Duration `env:"STOREKIT_CHECK_INTERVAL" envDefault:"1m" yaml:"check_interval"`
//	}
//
// Load parses the environment once per type and caches the result. The
// default .env file is read on first use through github.com/joho/godotenv.
// LoadFile layers a YAML file between the tag defaults and the environment
// and is not cached. ResetCache clears cached values in tests.
package config

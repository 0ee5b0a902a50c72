package subscriptions

import "time"

// Config holds the orchestrator settings.
type Config struct {
	// PackageName is sent with store logins and confirmations when the
	// purchase record does not carry one.
	PackageName string `env:"STOREKIT_PACKAGE_NAME" envDefault:"com.storekit.app" yaml:"package_name"`
	// Store identifies the purchase source for store logins.
	Store string `env:"STOREKIT_STORE" envDefault:"google_play_store" yaml:"store"`

	// TokenExpiryLeeway is subtracted from a JWT access token's exp before
	// it is considered expired without asking the backend.
	TokenExpiryLeeway time.Duration `env:"STOREKIT_TOKEN_EXPIRY_LEEWAY" envDefault:"30s" yaml:"token_expiry_leeway"`

	ConfirmedTokensSize int           `env:"STOREKIT_CONFIRMED_TOKENS_SIZE" envDefault:"128" yaml:"confirmed_tokens_size"`
	ConfirmedTokensTTL  time.Duration `env:"STOREKIT_CONFIRMED_TOKENS_TTL" envDefault:"24h" yaml:"confirmed_tokens_ttl"`

	// PendingCheckInterval drives PendingChecker. There is no default: the
	// host decides how often a Waiting purchase is re-confirmed.
	PendingCheckInterval time.Duration `env:"STOREKIT_PENDING_CHECK_INTERVAL" yaml:"pending_check_interval"`
}

// DefaultConfig returns the env defaults for hosts that skip env parsing.
func DefaultConfig() Config {
	return Config{
		PackageName:         "com.storekit.app",
		Store:               "google_play_store",
		TokenExpiryLeeway:   30 * time.Second,
		ConfirmedTokensSize: 128,
		ConfirmedTokensTTL:  24 * time.Hour,
	}
}

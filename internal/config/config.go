// Package config loads client configuration from the environment, with
// optional .env support for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Reference timing values. All of them can be overridden through
// QUIZDECK_* environment variables.
const (
	DefaultSessionTTL        = 30 * time.Minute
	DefaultRefreshTokenTTL   = 7 * 24 * time.Hour
	DefaultGuestTTL          = 24 * time.Hour
	DefaultStatusTick        = 60 * time.Second
	DefaultRefreshThreshold  = 5 * time.Minute
	DefaultInactivityTimeout = 15 * time.Minute
	DefaultWarningTime       = 2 * time.Minute
	DefaultCacheTTL          = 5 * time.Minute
)

// Config holds all client settings.
type Config struct {
	ServerURL   string
	StorePath   string
	HistoryPath string
	KeyPath     string
	SaltPath string
	// StoreKey is an optional base64-encoded 32-byte key for the
	// encrypted store. When empty a key file at KeyPath is used.
	StoreKey string
	// StoreEmail and StoreSecret select credential-derived store keys:
	// when both are set the key is derived with Argon2id using a salt
	// persisted at SaltPath, and takes precedence over StoreKey.
	StoreEmail  string
	StoreSecret string

	SessionTTL        time.Duration
	RefreshTokenTTL   time.Duration
	GuestTTL          time.Duration
	StatusTick        time.Duration
	RefreshThreshold  time.Duration
	InactivityTimeout time.Duration
	WarningTime       time.Duration
	CacheTTL          time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first if present; real environment
// variables win over .env values.
func Load() (*Config, error) {
	// missing .env is fine
	_ = godotenv.Load()

	cfg := &Config{
		ServerURL:   getEnv("QUIZDECK_SERVER_URL", "http://localhost:8080"),
		StorePath:   getEnv("QUIZDECK_STORE_PATH", "quizdeck-client.db"),
		HistoryPath: getEnv("QUIZDECK_HISTORY_PATH", "quizdeck-history.db"),
		KeyPath:     getEnv("QUIZDECK_KEY_PATH", "quizdeck-client.key"),
		SaltPath:    getEnv("QUIZDECK_SALT_PATH", "quizdeck-client.salt"),
		StoreKey:    os.Getenv("QUIZDECK_STORE_KEY"),
		StoreEmail:  os.Getenv("QUIZDECK_STORE_EMAIL"),
		StoreSecret: os.Getenv("QUIZDECK_STORE_SECRET"),
	}

	var err error
	if cfg.SessionTTL, err = getDuration("QUIZDECK_SESSION_TTL", DefaultSessionTTL); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = getDuration("QUIZDECK_REFRESH_TOKEN_TTL", DefaultRefreshTokenTTL); err != nil {
		return nil, err
	}
	if cfg.GuestTTL, err = getDuration("QUIZDECK_GUEST_TTL", DefaultGuestTTL); err != nil {
		return nil, err
	}
	if cfg.StatusTick, err = getDuration("QUIZDECK_STATUS_TICK", DefaultStatusTick); err != nil {
		return nil, err
	}
	if cfg.RefreshThreshold, err = getDuration("QUIZDECK_REFRESH_THRESHOLD", DefaultRefreshThreshold); err != nil {
		return nil, err
	}
	if cfg.InactivityTimeout, err = getDuration("QUIZDECK_INACTIVITY_TIMEOUT", DefaultInactivityTimeout); err != nil {
		return nil, err
	}
	if cfg.WarningTime, err = getDuration("QUIZDECK_WARNING_TIME", DefaultWarningTime); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDuration("QUIZDECK_CACHE_TTL", DefaultCacheTTL); err != nil {
		return nil, err
	}

	if cfg.WarningTime >= cfg.InactivityTimeout {
		return nil, fmt.Errorf("warning time %s must be shorter than inactivity timeout %s",
			cfg.WarningTime, cfg.InactivityTimeout)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration in %s: %w", key, err)
	}
	return d, nil
}

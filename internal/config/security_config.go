package config

import (
	"os"
	"time"
)

type SecurityConfig interface {
	GetTokenSecret() string
	GetTokenTTL() time.Duration
	GetRefreshDebounce() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetTokenSecret returns the shared credential-signing secret. An empty
// value is a fatal startup condition, checked once in main, so callers
// past startup can rely on it being non-empty.
func (Security) GetTokenSecret() string {
	return os.Getenv("TOKEN_SECRET")
}

func (Security) GetTokenTTL() time.Duration {
	return durationEnv("TOKEN_TTL", time.Hour)
}

// GetRefreshDebounce is the minimum interval between client token refreshes.
func (Security) GetRefreshDebounce() time.Duration {
	return durationEnv("REFRESH_DEBOUNCE", time.Minute)
}

func durationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config aggregates application-wide configuration values.
type Config struct {
	Port string

	APIKey        string
	Model         string
	ModelTimeout  time.Duration
	RedisURL      string
	RedisDB       int
	CacheTTL      time.Duration
	RatePerSecond float64
	RateBurst     int
	SessionTTL    time.Duration
}

// Load reads configuration from the environment. A missing API key is an
// error: the service cannot do anything without it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8085"),
		APIKey:   getEnv("API_KEY", os.Getenv("GEMINI_API_KEY")),
		Model:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY environment variable not set")
	}

	var err error
	if cfg.ModelTimeout, err = parseDuration("GEMINI_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = parseDuration("CACHE_TTL", "10m"); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = parseDuration("SESSION_TTL", "30m"); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = parseInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RateBurst, err = parseInt("RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}

	rps := getEnv("RATE_LIMIT_RPS", "10")
	if cfg.RatePerSecond, err = strconv.ParseFloat(rps, 64); err != nil || cfg.RatePerSecond < 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS value: %q", rps)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

// parseDuration accepts Go durations ("90s") or bare seconds ("600").
func parseDuration(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return n, nil
}

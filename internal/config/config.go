package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite://webhook.db"`

	// Target of simulated deliveries. Defaults to this server's own webhook.
	WebhookURL string `env:"WEBHOOK_URL"`

	// Feed cache, enabled when RedisURL is set.
	RedisURL    string        `env:"REDIS_URL"`
	CachePrefix string        `env:"CACHE_PREFIX" envDefault:"repo-feed:"`
	CacheTTL    time.Duration `env:"CACHE_TTL" envDefault:"30s"`

	FeedPollInterval time.Duration `env:"FEED_POLL_INTERVAL" envDefault:"15s"`
	DeliveryTimeout  time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"10s"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogEncoding string `env:"LOG_ENCODING" envDefault:"json"`
	LogFile     string `env:"LOG_FILE"`

	GinMode string `env:"GIN_MODE" envDefault:"release"`
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL)
	}
	if c.FeedPollInterval <= 0 {
		return fmt.Errorf("FEED_POLL_INTERVAL must be positive, got %s", c.FeedPollInterval)
	}
	if c.DeliveryTimeout < 0 {
		return fmt.Errorf("DELIVERY_TIMEOUT must not be negative, got %s", c.DeliveryTimeout)
	}
	if c.LogEncoding != "json" && c.LogEncoding != "console" {
		return fmt.Errorf("LOG_ENCODING must be json or console, got %q", c.LogEncoding)
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SimulatorURL returns where simulated deliveries are posted.
func (c Config) SimulatorURL() string {
	if c.WebhookURL != "" {
		return c.WebhookURL
	}
	return fmt.Sprintf("http://localhost:%d/webhook", c.Port)
}

// UseRedisCache returns true if the Redis feed cache is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

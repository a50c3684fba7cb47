package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the sync service.
// Environment variables are parsed from the NBSYNC_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Redis backing store
	RedisURL         string        `envconfig:"REDIS_URL" default:"redis://localhost:6379"`
	RedisDialTimeout time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	RedisOpTimeout   time.Duration `envconfig:"REDIS_OP_TIMEOUT" default:"5s"`
	// Catch-up scans walk the whole key namespace and get a longer leash.
	RedisScanTimeout time.Duration `envconfig:"REDIS_SCAN_TIMEOUT" default:"30s"`

	// Default record expiry for pending updates and hash entries.
	UpdateTTL time.Duration `envconfig:"UPDATE_TTL" default:"24h"`
	// Session records linger this long after their last write.
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	// Session code shape
	SessionCodeLength int `envconfig:"SESSION_CODE_LENGTH" default:"6"`

	// Role assignment overrides (comma-separated user ids always treated as
	// teachers; TEACHER_MODE promotes every request).
	TeacherMode  bool   `envconfig:"TEACHER_MODE" default:"false"`
	TeacherUsers string `envconfig:"TEACHER_USERS" default:""`

	// Health monitor probe interval
	HealthInterval time.Duration `envconfig:"HEALTH_INTERVAL" default:"30s"`
}

// New creates a new Config by parsing environment variables.
// Example: NBSYNC_REDIS_URL, NBSYNC_HTTP_PORT.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("NBSYNC", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("redis_url", cfg.RedisURL).
		Dur("update_ttl", cfg.UpdateTTL).
		Bool("teacher_mode", cfg.TeacherMode).
		Msg("Configuration loaded")

	return &cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("redis URL is required")
	}
	if c.SessionCodeLength < 4 || c.SessionCodeLength > 12 {
		return fmt.Errorf("session code length %d out of range [4,12]", c.SessionCodeLength)
	}
	if c.UpdateTTL <= 0 {
		return fmt.Errorf("update TTL must be positive")
	}
	return nil
}

// NewForTesting creates a config specifically for testing.
func NewForTesting() *Config {
	return &Config{
		Environment:       EnvTesting,
		HTTPPort:          8080,
		RedisURL:          "redis://localhost:6379",
		RedisDialTimeout:  time.Second,
		RedisOpTimeout:    time.Second,
		RedisScanTimeout:  5 * time.Second,
		UpdateTTL:         24 * time.Hour,
		SessionTTL:        24 * time.Hour,
		SessionCodeLength: 6,
		HealthInterval:    100 * time.Millisecond,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

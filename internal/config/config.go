package config

import (
	"fmt"
	"os"
	"time"
)

const (
	PlatformNative = "native"
	PlatformWeb    = "web"

	KVSQLite = "sqlite"
	KVRedis  = "redis"
	KVMemory = "memory"
)

// Config holds runtime settings for the MediTrack CLI.
//
// Platform selects the medication storage backend once per process: native
// uses the relational tables in DatabaseDSN, web keeps medications as a
// serialized blob in the key-value store chosen by KVDriver. The key-value
// store also holds the persisted session on both platforms.
type Config struct {
	Platform    string `env:"MEDITRACK_PLATFORM"`
	DatabaseDSN string `env:"MEDITRACK_DATABASE_DSN"`

	KVDriver      string `env:"MEDITRACK_KV_DRIVER"`
	RedisAddr     string `env:"MEDITRACK_REDIS_ADDR"`
	RedisPassword string `env:"MEDITRACK_REDIS_PASSWORD"`
	RedisDB       int    `env:"MEDITRACK_REDIS_DB"`

	SecretKey  string        `env:"MEDITRACK_SECRET_KEY"`
	SessionTTL time.Duration `env:"MEDITRACK_SESSION_TTL"`

	LogLevel  string `env:"MEDITRACK_LOG_LEVEL"`
	LogFormat string `env:"MEDITRACK_LOG_FORMAT"`
}

// LoadDefaults populates c with defaults suitable for a local install.
func (c *Config) LoadDefaults() {
	c.Platform = PlatformNative
	c.DatabaseDSN = "meditrack.db"
	c.KVDriver = KVSQLite
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisDB = 0
	c.SecretKey = "meditrack-local-secret"
	c.SessionTTL = 30 * 24 * time.Hour
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch c.Platform {
	case PlatformNative, PlatformWeb:
	default:
		return fmt.Errorf("unknown platform %q", c.Platform)
	}
	switch c.KVDriver {
	case KVSQLite, KVRedis, KVMemory:
	default:
		return fmt.Errorf("unknown kv driver %q", c.KVDriver)
	}
	if c.KVDriver == KVSQLite || c.Platform == PlatformNative {
		if c.DatabaseDSN == "" {
			return fmt.Errorf("database dsn is required for platform %q with kv driver %q", c.Platform, c.KVDriver)
		}
	}
	if c.KVDriver == KVRedis && c.RedisAddr == "" {
		return fmt.Errorf("redis address is required for kv driver %q", c.KVDriver)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}
	return nil
}

// LoadConfig applies defaults, then JSON, environment and flags in that
// order, and validates the result.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	args := os.Args[1:]
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	parseFlags(cfg, args)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

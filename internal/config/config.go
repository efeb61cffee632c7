package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Store drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port     string `env:"PORT" env-default:"3000"`
	Env      string `env:"ENV" env-default:"development"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	Store StoreConfig
	JWT   JWTConfig
	Hash  HashConfig
}

type StoreConfig struct {
	Driver  string        `env:"STORE_DRIVER" env-default:"mysql"`
	DSN     string        `env:"DATABASE_DSN"`
	Timeout time.Duration `env:"STORE_TIMEOUT" env-default:"5s"`
	Migrate bool          `env:"MIGRATE" env-default:"true"`
}

type JWTConfig struct {
	Secret string `env:"JWT_SECRET" env-required:"true"`
	// Zero means tokens carry no exp claim.
	Expiry time.Duration `env:"JWT_EXPIRY" env-default:"0s"`
}

type HashConfig struct {
	MemoryKiB   uint32 `env:"HASH_MEMORY_KIB" env-default:"65536"`
	Iterations  uint32 `env:"HASH_ITERATIONS" env-default:"3"`
	Parallelism uint8  `env:"HASH_PARALLELISM" env-default:"2"`
	Workers     int    `env:"HASH_WORKERS" env-default:"0"`
}

func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverMySQL, DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for store driver %q", c.Store.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER: unknown driver %q", c.Store.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWT.Expiry < 0 {
		return fmt.Errorf("JWT_EXPIRY must not be negative")
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if c.Hash.Iterations == 0 || c.Hash.Parallelism == 0 || c.Hash.MemoryKiB == 0 {
		return fmt.Errorf("HASH_MEMORY_KIB, HASH_ITERATIONS and HASH_PARALLELISM must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// IsProduction reports whether the service runs with ENV=production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// ParseLevel maps LOG_LEVEL onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// ABOUTME: Configuration loading and parsing for retinal-ledger
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the complete retinal-ledger configuration
type Config struct {
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Cache    CacheConfig    `yaml:"cache" toml:"cache"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// DatabaseConfig holds durable store configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"` // "sqlite" (pure Go) or "sqlite3" (cgo)
	Path   string `yaml:"path" toml:"path"`
}

// CacheConfig holds local cache configuration
type CacheConfig struct {
	Backend string      `yaml:"backend" toml:"backend"` // memory, local, redis
	Path    string      `yaml:"path" toml:"path"`       // local backend file
	Prefix  string      `yaml:"prefix" toml:"prefix"`
	Redis   RedisConfig `yaml:"redis" toml:"redis"`
}

// RedisConfig holds Redis connection settings for the redis cache backend
type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	BcryptCost    int           `yaml:"bcrypt_cost" toml:"bcrypt_cost"`
	AdminSecret   string        `yaml:"admin_secret" toml:"admin_secret"`
	AdminTokenTTL time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	AdminTokenTTLRaw string `yaml:"admin_token_ttl" toml:"admin_token_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns a configuration rooted at dataDir with every optional
// field filled in.
func Default(dataDir string) *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(dataDir, "retinal.db"),
		},
		Cache: CacheConfig{
			Backend: "local",
			Path:    filepath.Join(dataDir, "cache.db"),
			Prefix:  "retinal-ai",
		},
		Auth: AuthConfig{
			BcryptCost:       12,
			AdminTokenTTL:    24 * time.Hour,
			AdminTokenTTLRaw: "24h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config layered over Default(dataDir). Files ending in .toml are decoded as
// TOML, everything else as YAML. Environment variables in the format
// ${VAR_NAME} are expanded.
func Load(path, dataDir string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default(dataDir)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path if it exists and otherwise returns the defaults.
func LoadOrDefault(path, dataDir string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default(dataDir)
		cfg.Auth.AdminSecret = os.Getenv("RETINAL_ADMIN_SECRET")
		return cfg, cfg.Validate()
	}
	return Load(path, dataDir)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be sqlite or sqlite3, got %q", c.Database.Driver)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Cache.Backend {
	case "memory":
	case "local":
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for the local backend")
		}
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be memory, local or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.Prefix == "" || strings.Contains(c.Cache.Prefix, ":") {
		return fmt.Errorf("cache.prefix must be non-empty and must not contain ':'")
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}
	if c.Auth.AdminSecret != "" && len(c.Auth.AdminSecret) < 32 {
		return fmt.Errorf("auth.admin_secret must be at least 32 bytes")
	}
	if c.Auth.AdminTokenTTL <= 0 {
		return fmt.Errorf("auth.admin_token_ttl must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Auth.AdminTokenTTLRaw != "" {
		d, err := time.ParseDuration(cfg.Auth.AdminTokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing admin_token_ttl %q: %w", cfg.Auth.AdminTokenTTLRaw, err)
		}
		cfg.Auth.AdminTokenTTL = d
	}
	return nil
}

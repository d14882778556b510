// Package config loads server settings from a YAML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// DefaultPath is where the server looks for its config file
const DefaultPath = "config/shapesync.yml"

// Config is the server configuration
type Config struct {
	// Listen is the UDP address for game traffic
	Listen string `yaml:"listen"`
	// HTTP is the TCP address for the status API
	HTTP        string  `yaml:"http"`
	LogLevel    string  `yaml:"log_level"`
	PlayerLimit int     `yaml:"player_limit"`
	Storage     Storage `yaml:"storage"`
}

// Storage selects and configures the persistence backend
type Storage struct {
	Type     string `yaml:"type"`
	File     string `yaml:"file"`
	SQLite   string `yaml:"sqlite"`
	Postgres string `yaml:"postgres"`
	Redis    Redis  `yaml:"redis"`
}

// Redis holds Redis connection settings
type Redis struct {
	URL          string `yaml:"url"`
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
}

// Default returns the configuration used when no file is present
func Default() Config {
	return Config{
		Listen:   ":54777",
		HTTP:     ":54555",
		LogLevel: "info",
		Storage: Storage{
			Type:   StorageFile,
			File:   "players.json",
			SQLite: "data/players.db",
			Redis: Redis{
				PoolSize:     10,
				MinIdleConns: 2,
			},
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SHAPESYNC_* variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SHAPESYNC_LISTEN":       &c.Listen,
		"SHAPESYNC_HTTP":         &c.HTTP,
		"SHAPESYNC_LOG_LEVEL":    &c.LogLevel,
		"SHAPESYNC_STORAGE":      &c.Storage.Type,
		"SHAPESYNC_STORAGE_FILE": &c.Storage.File,
		"SHAPESYNC_SQLITE_PATH":  &c.Storage.SQLite,
		"SHAPESYNC_POSTGRES_DSN": &c.Storage.Postgres,
		"SHAPESYNC_REDIS_URL":    &c.Storage.Redis.URL,
	}
	for key, field := range strs {
		if v, ok := lookup(key); ok {
			*field = v
		}
	}

	if v, ok := lookup("SHAPESYNC_PLAYER_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SHAPESYNC_PLAYER_LIMIT: %w", err)
		}
		c.PlayerLimit = n
	}
	return nil
}

// Validate checks that the selected backend has what it needs
func (c Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Listen == "" {
		return errors.New("listen address is required")
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageFile:
		if c.Storage.File == "" {
			return errors.New("storage.file is required for file storage")
		}
	case StorageSQLite:
		if c.Storage.SQLite == "" {
			return errors.New("storage.sqlite is required for sqlite storage")
		}
	case StoragePostgres:
		if c.Storage.Postgres == "" {
			return errors.New("storage.postgres is required for postgres storage")
		}
	case StorageRedis:
		if c.Storage.Redis.URL == "" {
			return errors.New("storage.redis.url is required for redis storage")
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	return nil
}

// ParseLevel maps a level name to a slog level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

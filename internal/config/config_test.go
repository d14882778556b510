package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
	dir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *ConfigSuite) write(body string) string {
	path := filepath.Join(s.dir, "shapesync.yml")
	s.Require().NoError(os.WriteFile(path, []byte(body), 0o644))
	return path
}

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func (s *ConfigSuite) TestMissingFileUsesDefaults() {
	cfg, err := Load(filepath.Join(s.dir, "absent.yml"))
	s.Require().NoError(err)

	s.Equal(":54777", cfg.Listen)
	s.Equal(":54555", cfg.HTTP)
	s.Equal(StorageFile, cfg.Storage.Type)
	s.Equal("players.json", cfg.Storage.File)
}

func (s *ConfigSuite) TestFileOverridesDefaults() {
	path := s.write(`
listen: ":9000"
player_limit: 8
storage:
  type: sqlite
  sqlite: /tmp/x.db
`)

	cfg, err := Load(path)
	s.Require().NoError(err)

	s.Equal(":9000", cfg.Listen)
	s.Equal(":54555", cfg.HTTP, "unset keys keep their default")
	s.Equal(8, cfg.PlayerLimit)
	s.Equal(StorageSQLite, cfg.Storage.Type)
	s.Equal("/tmp/x.db", cfg.Storage.SQLite)
	s.Equal(10, cfg.Storage.Redis.PoolSize)
}

func (s *ConfigSuite) TestEnvOverridesFile() {
	cfg := Default()

	err := cfg.ApplyEnv(env(map[string]string{
		"SHAPESYNC_STORAGE":      "redis",
		"SHAPESYNC_REDIS_URL":    "redis://localhost:6379/0",
		"SHAPESYNC_PLAYER_LIMIT": "4",
		"SHAPESYNC_LOG_LEVEL":    "debug",
	}))
	s.Require().NoError(err)

	s.Equal(StorageRedis, cfg.Storage.Type)
	s.Equal("redis://localhost:6379/0", cfg.Storage.Redis.URL)
	s.Equal(4, cfg.PlayerLimit)
	s.NoError(cfg.Validate())
}

func (s *ConfigSuite) TestBadPlayerLimitEnv() {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{"SHAPESYNC_PLAYER_LIMIT": "lots"}))
	s.Error(err)
}

func (s *ConfigSuite) TestMalformedFile() {
	_, err := Load(s.write("listen: [unclosed\n"))
	s.Error(err)
}

func (s *ConfigSuite) TestValidate() {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"memory", func(c *Config) { c.Storage.Type = StorageMemory }, true},
		{"unknown storage", func(c *Config) { c.Storage.Type = "tape" }, false},
		{"postgres without dsn", func(c *Config) { c.Storage.Type = StoragePostgres }, false},
		{"redis without url", func(c *Config) { c.Storage.Type = StorageRedis }, false},
		{"file without path", func(c *Config) { c.Storage.File = "" }, false},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"no listen", func(c *Config) { c.Listen = "" }, false},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				s.NoError(err)
			} else {
				s.Error(err)
			}
		})
	}
}

func (s *ConfigSuite) TestParseLevel() {
	lvl, err := ParseLevel("WARN")
	s.Require().NoError(err)
	s.Equal(slog.LevelWarn, lvl)

	lvl, err = ParseLevel("")
	s.Require().NoError(err)
	s.Equal(slog.LevelInfo, lvl)
}

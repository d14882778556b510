package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Env(t *testing.T) {
	t.Setenv("SHAPESYNC_API", "http://status:9000")
	t.Setenv("SHAPESYNC_ADDR", "game:7000")
	t.Setenv("SHAPESYNC_PROFILE", "/tmp/p.yml")
	t.Setenv("SHAPESYNC_LOG_FILE", "")

	c := DefaultConfig()
	assert.Equal(t, "http://status:9000", c.ServerURL)
	assert.Equal(t, "game:7000", c.GameAddr)
	assert.Equal(t, "/tmp/p.yml", c.ProfilePath)
	assert.Equal(t, "text", c.Output)
	assert.Empty(t, c.LogFile)
}

func TestDefaultConfig_Defaults(t *testing.T) {
	t.Setenv("SHAPESYNC_API", "")
	t.Setenv("SHAPESYNC_ADDR", "")

	c := DefaultConfig()
	assert.Equal(t, "http://localhost:54555", c.ServerURL)
	assert.Equal(t, "localhost:54777", c.GameAddr)
	assert.NotEmpty(t, c.ProfilePath)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"json output", func(c *Config) { c.Output = "json" }, false},
		{"unknown output", func(c *Config) { c.Output = "yaml" }, true},
		{"empty addr", func(c *Config) { c.GameAddr = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_LoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	c := DefaultConfig()
	c.LogFile = path
	c.Verbose = true

	logger, closeLog, err := c.Logger(os.Stderr)
	require.NoError(t, err)
	logger.Debug("hello from the test")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the test")
}

func TestConfig_LoggerBadFile(t *testing.T) {
	c := DefaultConfig()
	c.LogFile = filepath.Join(t.TempDir(), "missing", "client.log")

	_, _, err := c.Logger(os.Stderr)
	assert.Error(t, err)
}

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mcoot/shapesync/internal/client"
)

// Config holds CLI configuration
type Config struct {
	ServerURL   string
	GameAddr    string
	ProfilePath string
	Output      string
	Verbose     bool
	LogFile     string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:   getEnvOrDefault("SHAPESYNC_API", "http://localhost:54555"),
		GameAddr:    getEnvOrDefault("SHAPESYNC_ADDR", "localhost:54777"),
		ProfilePath: getEnvOrDefault("SHAPESYNC_PROFILE", client.DefaultProfilePath()),
		Output:      "text",
		Verbose:     false,
		LogFile:     os.Getenv("SHAPESYNC_LOG_FILE"),
	}
}

// Validate checks the flag values
func (c *Config) Validate() error {
	if c.Output != "text" && c.Output != "json" {
		return fmt.Errorf("unknown output format %q (want text or json)", c.Output)
	}
	if c.GameAddr == "" {
		return fmt.Errorf("game address must not be empty")
	}
	return nil
}

// Logger builds the client logger. Logs go to the log file when one is
// set, otherwise to fallback. The returned func closes the file.
func (c *Config) Logger(fallback io.Writer) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}

	w := fallback
	closeFn := func() {}
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closeFn, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
